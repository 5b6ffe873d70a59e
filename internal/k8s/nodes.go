package k8s

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// NodeStatus is the live cluster API's view of one node.
type NodeStatus struct {
	Name           string
	Ready          bool
	ControlPlane   bool
	KubeletVersion string
	InternalIP     string
	AllocatableCPU string
	AllocatableMem string
}

// ListNodeStatus returns the status of every node known to the cluster API.
func (c *Client) ListNodeStatus(ctx context.Context) ([]NodeStatus, error) {
	nodeList, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	statuses := make([]NodeStatus, 0, len(nodeList.Items))
	for i := range nodeList.Items {
		statuses = append(statuses, nodeStatusOf(&nodeList.Items[i]))
	}
	return statuses, nil
}

// IsNodeReady reports whether the named node reports the Ready condition.
// A missing node is not an error: it simply is not ready yet.
func (c *Client) IsNodeReady(ctx context.Context, name string) (bool, error) {
	node, err := c.clientset.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return false, nil
	}
	return isNodeReady(node), nil
}

// PodCountsByNode returns the number of non-terminal pods scheduled per node.
func (c *Client) PodCountsByNode(ctx context.Context) (map[string]int, error) {
	podList, err := c.clientset.CoreV1().Pods("").List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	counts := make(map[string]int)
	for _, pod := range podList.Items {
		if pod.Spec.NodeName == "" {
			continue
		}
		if pod.Status.Phase == corev1.PodSucceeded || pod.Status.Phase == corev1.PodFailed {
			continue
		}
		counts[pod.Spec.NodeName]++
	}
	return counts, nil
}

// PodInfo is a per-pod summary for status display.
type PodInfo struct {
	Namespace string
	Name      string
	Node      string
	Phase     string
	Restarts  int32
}

// ListPods returns pod summaries, optionally restricted to a namespace.
func (c *Client) ListPods(ctx context.Context, namespace string) ([]PodInfo, error) {
	podList, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	pods := make([]PodInfo, 0, len(podList.Items))
	for _, pod := range podList.Items {
		var restarts int32
		for _, cs := range pod.Status.ContainerStatuses {
			restarts += cs.RestartCount
		}
		pods = append(pods, PodInfo{
			Namespace: pod.Namespace,
			Name:      pod.Name,
			Node:      pod.Spec.NodeName,
			Phase:     string(pod.Status.Phase),
			Restarts:  restarts,
		})
	}
	return pods, nil
}

func nodeStatusOf(node *corev1.Node) NodeStatus {
	status := NodeStatus{
		Name:           node.Name,
		Ready:          isNodeReady(node),
		KubeletVersion: node.Status.NodeInfo.KubeletVersion,
		AllocatableCPU: node.Status.Allocatable.Cpu().String(),
		AllocatableMem: node.Status.Allocatable.Memory().String(),
	}

	labels := node.Labels
	if _, ok := labels["node-role.kubernetes.io/control-plane"]; ok {
		status.ControlPlane = true
	} else if _, ok := labels["node-role.kubernetes.io/master"]; ok {
		status.ControlPlane = true
	}

	for _, addr := range node.Status.Addresses {
		if addr.Type == corev1.NodeInternalIP {
			status.InternalIP = addr.Address
			break
		}
	}

	return status
}

func isNodeReady(node *corev1.Node) bool {
	for _, condition := range node.Status.Conditions {
		if condition.Type == corev1.NodeReady &&
			condition.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}
