// Package k8s wraps the live cluster API queries this tool needs: node
// readiness, per-node workload counts, usage metrics and drain.
//
// The cluster API is treated strictly as a read-only oracle except for the
// drain path used during node removal.
package k8s

import (
	"fmt"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"
)

// Client wraps Kubernetes API operations against the cluster reachable over
// the overlay network.
type Client struct {
	clientset kubernetes.Interface
	metrics   metricsclient.Interface
}

// NewClient creates a client from a kubeconfig file.
func NewClient(kubeconfigPath string) (*Client, error) {
	config, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to build kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	// Metrics are optional: usage reporting degrades gracefully when the
	// metrics API is absent.
	metrics, err := metricsclient.NewForConfig(config)
	if err != nil {
		metrics = nil
	}

	return &Client{clientset: clientset, metrics: metrics}, nil
}

// NewFromClients creates a client from pre-built clientsets. Used by tests
// with fake clientsets.
func NewFromClients(clientset kubernetes.Interface, metrics metricsclient.Interface) *Client {
	return &Client{clientset: clientset, metrics: metrics}
}
