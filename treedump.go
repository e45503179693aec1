// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import (
	"gopkg.in/yaml.v3"
)

// TreeNode is a YAML-serializable snapshot of one component in the tree
// (§2.3 Supplemented Features: component tree introspection), rendered
// on SIGUSR2 and by `--dry-run`.
type TreeNode struct {
	Name     string     `yaml:"name"`
	Class    string     `yaml:"class"`
	State    string     `yaml:"state"`
	Children []TreeNode `yaml:"children,omitempty"`
}

// childLister is satisfied by every concrete component type via its
// embedded [*BaseComponent].
type childLister interface {
	Children() []Component
}

// DumpTree walks root's subtree into a [TreeNode], recursing through
// every component that exposes its children (every built-in type does,
// via the embedded [*BaseComponent]).
func DumpTree(root Component) TreeNode {
	node := TreeNode{
		Name:  root.Name(),
		Class: root.Class(),
		State: root.State().String(),
	}
	if lister, ok := root.(childLister); ok {
		for _, child := range lister.Children() {
			node.Children = append(node.Children, DumpTree(child))
		}
	}
	return node
}

// DumpTreeYAML renders root's subtree as a YAML document, per the
// SIGUSR2 and `--dry-run` diagnostic formats (§2.3/§4 Supplemented
// Features).
func DumpTreeYAML(root Component) (string, error) {
	out, err := yaml.Marshal(DumpTree(root))
	if err != nil {
		return "", NewError(KindInternal, "failed to marshal component tree", err)
	}
	return string(out), nil
}
