package k8s

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsfake "k8s.io/metrics/pkg/client/clientset/versioned/fake"
)

func readyNode(name string, controlPlane bool) *corev1.Node {
	labels := map[string]string{}
	if controlPlane {
		labels["node-role.kubernetes.io/control-plane"] = "true"
	}
	return &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: name, Labels: labels},
		Status: corev1.NodeStatus{
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeReady, Status: corev1.ConditionTrue},
			},
			NodeInfo: corev1.NodeSystemInfo{KubeletVersion: "v1.31.4+k3s1"},
			Addresses: []corev1.NodeAddress{
				{Type: corev1.NodeInternalIP, Address: "100.64.0.1"},
			},
			Allocatable: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse("4"),
				corev1.ResourceMemory: resource.MustParse("8Gi"),
			},
		},
	}
}

func podOnNode(name, node string, phase corev1.PodPhase) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "default"},
		Spec:       corev1.PodSpec{NodeName: node},
		Status:     corev1.PodStatus{Phase: phase},
	}
}

func TestListNodeStatus(t *testing.T) {
	notReady := readyNode("w1", false)
	notReady.Status.Conditions = []corev1.NodeCondition{
		{Type: corev1.NodeReady, Status: corev1.ConditionFalse},
	}

	client := NewFromClients(fake.NewSimpleClientset(readyNode("cp1", true), notReady), nil)

	statuses, err := client.ListNodeStatus(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	byName := map[string]NodeStatus{}
	for _, s := range statuses {
		byName[s.Name] = s
	}

	assert.True(t, byName["cp1"].Ready)
	assert.True(t, byName["cp1"].ControlPlane)
	assert.Equal(t, "100.64.0.1", byName["cp1"].InternalIP)
	assert.Equal(t, "v1.31.4+k3s1", byName["cp1"].KubeletVersion)

	assert.False(t, byName["w1"].Ready)
	assert.False(t, byName["w1"].ControlPlane)
}

func TestIsNodeReady(t *testing.T) {
	client := NewFromClients(fake.NewSimpleClientset(readyNode("cp1", true)), nil)

	ready, err := client.IsNodeReady(context.Background(), "cp1")
	require.NoError(t, err)
	assert.True(t, ready)

	// A node the API has never seen is not ready, not an error.
	ready, err = client.IsNodeReady(context.Background(), "w9")
	require.NoError(t, err)
	assert.False(t, ready)
}

func TestPodCountsByNode(t *testing.T) {
	client := NewFromClients(fake.NewSimpleClientset(
		podOnNode("a", "w1", corev1.PodRunning),
		podOnNode("b", "w1", corev1.PodPending),
		podOnNode("c", "w1", corev1.PodSucceeded),
		podOnNode("d", "w2", corev1.PodRunning),
		podOnNode("unscheduled", "", corev1.PodPending),
	), nil)

	counts, err := client.PodCountsByNode(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, counts["w1"])
	assert.Equal(t, 1, counts["w2"])
	assert.NotContains(t, counts, "")
}

func TestListPods(t *testing.T) {
	running := podOnNode("web", "w1", corev1.PodRunning)
	running.Status.ContainerStatuses = []corev1.ContainerStatus{
		{RestartCount: 2}, {RestartCount: 1},
	}

	client := NewFromClients(fake.NewSimpleClientset(running), nil)

	pods, err := client.ListPods(context.Background(), "default")
	require.NoError(t, err)
	require.Len(t, pods, 1)

	assert.Equal(t, "web", pods[0].Name)
	assert.Equal(t, "w1", pods[0].Node)
	assert.Equal(t, "Running", pods[0].Phase)
	assert.Equal(t, int32(3), pods[0].Restarts)
}

func TestCordonNode(t *testing.T) {
	clientset := fake.NewSimpleClientset(readyNode("w1", false))
	client := NewFromClients(clientset, nil)

	require.NoError(t, client.CordonNode(context.Background(), "w1"))

	node, err := clientset.CoreV1().Nodes().Get(context.Background(), "w1", metav1.GetOptions{})
	require.NoError(t, err)
	assert.True(t, node.Spec.Unschedulable)

	// Cordoning twice is fine, as is cordoning a node that is already gone.
	require.NoError(t, client.CordonNode(context.Background(), "w1"))
	require.NoError(t, client.CordonNode(context.Background(), "w9"))
}

func TestDeleteNode(t *testing.T) {
	clientset := fake.NewSimpleClientset(readyNode("w1", false))
	client := NewFromClients(clientset, nil)

	require.NoError(t, client.DeleteNode(context.Background(), "w1"))

	_, err := clientset.CoreV1().Nodes().Get(context.Background(), "w1", metav1.GetOptions{})
	assert.Error(t, err)

	// Deleting again is idempotent.
	require.NoError(t, client.DeleteNode(context.Background(), "w1"))
}

func TestDrainNodeSkipsDaemonSetPods(t *testing.T) {
	dsPod := podOnNode("ds", "w1", corev1.PodRunning)
	dsPod.OwnerReferences = []metav1.OwnerReference{{Kind: "DaemonSet", Name: "kube-proxy"}}

	assert.False(t, isEvictable(dsPod))
	assert.True(t, isEvictable(podOnNode("app", "w1", corev1.PodRunning)))
	assert.False(t, isEvictable(podOnNode("done", "w1", corev1.PodSucceeded)))
}

func TestNodeUsageByName(t *testing.T) {
	metrics := metricsfake.NewSimpleClientset()
	// The fake tracker's Add guesses the resource name "nodemetricses" from
	// the kind, but the metrics API serves NodeMetrics as "nodes", so the
	// object must be seeded via Create with the explicit resource.
	require.NoError(t, metrics.Tracker().Create(
		metricsv1beta1.SchemeGroupVersion.WithResource("nodes"),
		&metricsv1beta1.NodeMetrics{
			ObjectMeta: metav1.ObjectMeta{Name: "w1"},
			Usage: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse("250m"),
				corev1.ResourceMemory: resource.MustParse("1Gi"),
			},
		}, ""))

	client := NewFromClients(fake.NewSimpleClientset(), metrics)

	usage, err := client.NodeUsageByName(context.Background())
	require.NoError(t, err)
	require.Contains(t, usage, "w1")
	assert.Equal(t, int64(250), usage["w1"].CPUMilli)
	assert.Equal(t, int64(1<<30), usage["w1"].MemoryBytes)
}

func TestNodeUsageWithoutMetricsAPI(t *testing.T) {
	client := NewFromClients(fake.NewSimpleClientset(), nil)

	_, err := client.NodeUsageByName(context.Background())
	assert.ErrorContains(t, err, "metrics API")
}
