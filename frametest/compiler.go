package frametest

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/frame/contract"
	"github.com/gogpu/frame/ids"
	"github.com/gogpu/frame/spatial"
)

// StubCompiler is a minimal frame.NodeCompiler: it synthesizes one font
// resource key per item (normalized the way a real glyph-run label would
// be before it's used as a resource-cache key, since labels may arrive in
// more than one Unicode normalization form) and compiles each AABB-tree
// item into a single-instance batch per draw-list group the node touches —
// just enough structure for tests to assert on resource and batch counts
// without a real geometry compiler or glyph rasterizer.
type StubCompiler struct{}

// BuildResourceList implements frame.NodeCompiler.
func (StubCompiler) BuildResourceList(node *spatial.Node) *contract.ResourceList {
	if len(node.Items) == 0 {
		return nil
	}
	list := &contract.ResourceList{}
	for _, item := range node.Items {
		label := fmt.Sprintf("draw-list-%d-item-%d", item.DrawList, item.ItemIndex)
		list.Fonts = append(list.Fonts, contract.FontKey(norm.NFC.String(label)))
	}
	return list
}

// CompileNode implements frame.NodeCompiler.
func (StubCompiler) CompileNode(node *spatial.Node) *contract.CompiledNode {
	order := []ids.DrawListGroupId{}
	byGroup := map[ids.DrawListGroupId]*contract.BatchList{}

	for _, item := range node.Items {
		bl, ok := byGroup[item.Group]
		if !ok {
			bl = &contract.BatchList{DrawListGroupId: item.Group}
			byGroup[item.Group] = bl
			order = append(order, item.Group)
		}
		bl.Batches = append(bl.Batches, contract.Batch{
			FirstInstance: uint32(len(bl.Batches)),
			InstanceCount: 1,
		})
	}

	out := &contract.CompiledNode{}
	for _, g := range order {
		out.BatchLists = append(out.BatchLists, *byGroup[g])
	}
	return out
}
