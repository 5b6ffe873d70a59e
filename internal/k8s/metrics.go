package k8s

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// NodeUsage is the current resource consumption reported by the metrics API.
type NodeUsage struct {
	CPUMilli    int64
	MemoryBytes int64
}

// NodeUsageByName queries the metrics API for per-node usage. Returns an
// error if the metrics API is not installed or unreachable; callers degrade
// by omitting usage.
func (c *Client) NodeUsageByName(ctx context.Context) (map[string]NodeUsage, error) {
	if c.metrics == nil {
		return nil, fmt.Errorf("metrics API client not configured")
	}

	metricsList, err := c.metrics.MetricsV1beta1().NodeMetricses().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to query node metrics: %w", err)
	}

	usage := make(map[string]NodeUsage, len(metricsList.Items))
	for _, item := range metricsList.Items {
		cpu := item.Usage[corev1.ResourceCPU]
		mem := item.Usage[corev1.ResourceMemory]
		usage[item.Name] = NodeUsage{
			CPUMilli:    cpu.MilliValue(),
			MemoryBytes: mem.Value(),
		}
	}
	return usage, nil
}
