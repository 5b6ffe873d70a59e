//go:build !unix

package inventory

// acquireLock is a no-op on platforms without flock. Saves on such platforms
// are still atomic via rename, just not serialized across processes.
func acquireLock(string) (func(), error) {
	return func() {}, nil
}
