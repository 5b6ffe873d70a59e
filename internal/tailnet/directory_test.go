package tailnet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statusJSON = `{
  "BackendState": "Running",
  "Self": {
    "HostName": "mgmt",
    "DNSName": "mgmt.tailnet.ts.net.",
    "TailscaleIPs": ["100.64.0.100"],
    "Online": true,
    "OS": "linux"
  },
  "Peer": {
    "key1": {
      "HostName": "cp1",
      "DNSName": "cp1.tailnet.ts.net.",
      "TailscaleIPs": ["100.64.0.1"],
      "Online": true,
      "OS": "linux"
    },
    "key2": {
      "HostName": "w1",
      "DNSName": "w1.tailnet.ts.net.",
      "TailscaleIPs": ["100.64.0.2"],
      "Online": false,
      "OS": "linux"
    },
    "key3": {
      "HostName": "expired",
      "TailscaleIPs": ["100.64.0.3"],
      "Online": true,
      "Expired": true
    },
    "key4": {
      "HostName": "no-ips",
      "TailscaleIPs": []
    }
  }
}`

func fixedDirectory(out string, err error) *Directory {
	d := NewDirectory(time.Second)
	d.status = func(context.Context) ([]byte, error) {
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	}
	return d
}

func TestDiscoverParsesPeers(t *testing.T) {
	d := fixedDirectory(statusJSON, nil)

	peers, err := d.Discover(context.Background(), Filter{})
	require.NoError(t, err)

	// Sorted by hostname, self included, peer without IPs dropped.
	require.Len(t, peers, 4)
	assert.Equal(t, "cp1", peers[0].Hostname)
	assert.Equal(t, "expired", peers[1].Hostname)
	assert.Equal(t, "mgmt", peers[2].Hostname)
	assert.Equal(t, "w1", peers[3].Hostname)

	cp1 := peers[0]
	assert.Equal(t, "100.64.0.1", cp1.TailscaleIP)
	assert.True(t, cp1.Online)
	assert.True(t, cp1.Authorized)

	// Offline peers are reported, not omitted.
	w1 := peers[3]
	assert.False(t, w1.Online)
	assert.True(t, w1.Authorized)

	// Key-expired peers are visible but not authorized.
	assert.False(t, peers[1].Authorized)

	self := peers[2]
	assert.True(t, self.Self)
	assert.True(t, self.Online)
}

func TestDiscoverFilter(t *testing.T) {
	d := fixedDirectory(statusJSON, nil)

	peers, err := d.Discover(context.Background(), Filter{OnlineOnly: true})
	require.NoError(t, err)
	for _, p := range peers {
		assert.True(t, p.Online)
	}

	peers, err = d.Discover(context.Background(), Filter{HostnamePattern: "W1"})
	require.NoError(t, err)
	require.Len(t, peers, 1)
	assert.Equal(t, "w1", peers[0].Hostname)
}

func TestDiscoverNotAuthenticated(t *testing.T) {
	d := fixedDirectory(`{"BackendState": "NeedsLogin"}`, nil)

	_, err := d.Discover(context.Background(), Filter{})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestDiscoverDaemonStopped(t *testing.T) {
	d := fixedDirectory(`{"BackendState": "Stopped"}`, nil)

	_, err := d.Discover(context.Background(), Filter{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDiscoverInvalidJSON(t *testing.T) {
	d := fixedDirectory("not json", nil)

	_, err := d.Discover(context.Background(), Filter{})
	assert.ErrorIs(t, err, ErrUnavailable)
}
