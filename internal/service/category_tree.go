package service

import (
	"fmt"

	"backend/internal/model"
	"backend/pkg/apperror"

	"github.com/google/uuid"
)

// TreeNode is one node of the category forest returned to the admin UI.
type TreeNode struct {
	Category model.Category `json:"category"`
	Children []*TreeNode    `json:"children"`
}

// BuildTree converts a flat category list into a forest. A category whose
// parent is absent from the input (trashed, purged or unknown) is promoted
// to a root rather than dropped. Sibling order follows input order.
func BuildTree(categories []model.Category) []*TreeNode {
	nodes := make(map[uuid.UUID]*TreeNode, len(categories))
	for i := range categories {
		nodes[categories[i].ID] = &TreeNode{Category: categories[i], Children: []*TreeNode{}}
	}

	roots := make([]*TreeNode, 0)
	for i := range categories {
		node := nodes[categories[i].ID]
		parentID := categories[i].ParentID
		if parentID != nil {
			if parent, ok := nodes[*parentID]; ok && *parentID != categories[i].ID {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	return roots
}

// CandidateParents returns the categories eligible to become the parent of
// the category identified by excluding. The excluded category itself and
// every transitive descendant are removed from the pool — picking any of
// them would create a cycle. A nil excluding id (creating a new category)
// returns the full input.
func CandidateParents(categories []model.Category, excluding *uuid.UUID) ([]model.Category, error) {
	if excluding == nil {
		return append([]model.Category(nil), categories...), nil
	}

	found := false
	for i := range categories {
		if categories[i].ID == *excluding {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: category %s not in candidate pool", apperror.ErrInvalidArgument, excluding)
	}

	blocked := descendantSet(categories, *excluding)
	blocked[*excluding] = true

	candidates := make([]model.Category, 0, len(categories))
	for i := range categories {
		if !blocked[categories[i].ID] {
			candidates = append(candidates, categories[i])
		}
	}
	return candidates, nil
}

// descendantSet collects every transitive child of root via BFS over the
// parent links of the input list.
func descendantSet(categories []model.Category, root uuid.UUID) map[uuid.UUID]bool {
	children := make(map[uuid.UUID][]uuid.UUID, len(categories))
	for i := range categories {
		if p := categories[i].ParentID; p != nil {
			children[*p] = append(children[*p], categories[i].ID)
		}
	}

	set := make(map[uuid.UUID]bool)
	queue := []uuid.UUID{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range children[current] {
			if !set[child] {
				set[child] = true
				queue = append(queue, child)
			}
		}
	}
	return set
}

// FlattenTree returns every category in the forest in depth-first order.
func FlattenTree(roots []*TreeNode) []model.Category {
	out := make([]model.Category, 0)
	var walk func(n *TreeNode)
	walk = func(n *TreeNode) {
		out = append(out, n.Category)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return out
}
