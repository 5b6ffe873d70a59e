package k8s

import (
	"context"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

const readyPollInterval = 5 * time.Second

// WaitForNodeReady polls until the named node reports Ready or the timeout
// elapses. Used as the readiness gate after a node has been provisioned.
func (c *Client) WaitForNodeReady(ctx context.Context, name string, timeout time.Duration) error {
	err := wait.PollUntilContextTimeout(ctx, readyPollInterval, timeout, true,
		func(ctx context.Context) (bool, error) {
			return c.IsNodeReady(ctx, name)
		})
	if err != nil {
		return fmt.Errorf("node %s did not become ready within %s: %w", name, timeout, err)
	}
	return nil
}
