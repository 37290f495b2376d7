package accounts

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v2"

	"bilanco/internal/core/apperror"
)

//go:embed plan.yaml
var planYAML []byte

// datasetEntry is one row of the embedded chart dataset.
type datasetEntry struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// dataset is the on-disk shape of plan.yaml.
type dataset struct {
	Accounts []datasetEntry `yaml:"accounts"`
	Keywords struct {
		Passive []string `yaml:"passive"`
		Active  []string `yaml:"active"`
	} `yaml:"keywords"`
}

// Registry is the immutable chart-of-accounts index.
// Populated once at startup; all methods are safe for concurrent use.
type Registry struct {
	nodes    []*AccountNode
	byCode   map[string]*AccountNode
	children map[string][]*AccountNode

	passiveKeywords []string // normalized
	activeKeywords  []string // normalized
}

// Load builds the registry from the embedded dataset.
func Load() (*Registry, error) {
	var ds dataset
	if err := yaml.Unmarshal(planYAML, &ds); err != nil {
		return nil, fmt.Errorf("parse chart dataset: %w", err)
	}
	return newRegistry(ds)
}

// MustLoad is Load that panics on a broken embedded dataset.
// The dataset ships with the binary, so failure here is a build defect.
func MustLoad() *Registry {
	r, err := Load()
	if err != nil {
		panic(err)
	}
	return r
}

func newRegistry(ds dataset) (*Registry, error) {
	r := &Registry{
		byCode:   make(map[string]*AccountNode, len(ds.Accounts)),
		children: make(map[string][]*AccountNode),
	}

	for _, entry := range ds.Accounts {
		if entry.Code == "" || entry.Name == "" {
			return nil, fmt.Errorf("chart dataset: entry with empty code or name")
		}
		if _, exists := r.byCode[entry.Code]; exists {
			return nil, fmt.Errorf("chart dataset: duplicate code %s", entry.Code)
		}

		accType, ok := TypeFromCode(entry.Code)
		if !ok {
			return nil, fmt.Errorf("chart dataset: code %s has unknown type prefix", entry.Code)
		}

		node := &AccountNode{
			Code:       entry.Code,
			Name:       entry.Name,
			Type:       accType,
			ParentCode: parentOf(entry.Code),
			Level:      codeLevel(entry.Code),
		}
		r.nodes = append(r.nodes, node)
		r.byCode[node.Code] = node
	}

	// Validate hierarchy: parents exist and subtrees are type-homogeneous.
	for _, node := range r.nodes {
		if node.ParentCode == "" {
			continue
		}
		parent, ok := r.byCode[node.ParentCode]
		if !ok {
			return nil, fmt.Errorf("chart dataset: %s references missing parent %s", node.Code, node.ParentCode)
		}
		if parent.Type != node.Type {
			return nil, fmt.Errorf("chart dataset: %s type %s differs from parent %s", node.Code, node.Type, parent.Code)
		}
		r.children[parent.Code] = append(r.children[parent.Code], node)
	}

	for _, kw := range ds.Keywords.Passive {
		r.passiveKeywords = append(r.passiveKeywords, NormalizeLabel(kw))
	}
	for _, kw := range ds.Keywords.Active {
		r.activeKeywords = append(r.activeKeywords, NormalizeLabel(kw))
	}

	return r, nil
}

// LookupByCode returns the node for an exact code.
func (r *Registry) LookupByCode(code string) (*AccountNode, error) {
	if node, ok := r.byCode[code]; ok {
		return node, nil
	}
	return nil, apperror.NewNotFound("account", code)
}

// Contains reports whether code is a registered account.
func (r *Registry) Contains(code string) bool {
	_, ok := r.byCode[code]
	return ok
}

// Children returns the direct children of code, in dataset order.
// Unknown codes yield an empty slice.
func (r *Registry) Children(code string) []*AccountNode {
	return r.children[code]
}

// Ancestors returns the chain from the node's parent up to its root,
// nearest first.
func (r *Registry) Ancestors(code string) ([]*AccountNode, error) {
	node, err := r.LookupByCode(code)
	if err != nil {
		return nil, err
	}

	var chain []*AccountNode
	for node.ParentCode != "" {
		parent, ok := r.byCode[node.ParentCode]
		if !ok {
			// newRegistry guarantees parents exist
			break
		}
		chain = append(chain, parent)
		node = parent
	}
	return chain, nil
}

// Nodes returns all nodes in dataset order. Callers must not mutate them.
func (r *Registry) Nodes() []*AccountNode {
	return r.nodes
}

// Len returns the number of registered accounts.
func (r *Registry) Len() int {
	return len(r.nodes)
}

// ClassifyLabel applies keyword heuristics to an item label when no account
// code could be matched. Defaults to active when ambiguous.
func (r *Registry) ClassifyLabel(label string) AccountType {
	normalized := NormalizeLabel(label)
	for _, kw := range r.passiveKeywords {
		if kw != "" && containsWord(normalized, kw) {
			return TypePassive
		}
	}
	return TypeActive
}

// SearchByLabel scores every account name against text and returns the
// candidates above zero, best first. Equal scores order deeper (more
// specific) nodes first, then by code for determinism. The result is a
// fresh slice: finite, ordered and restartable.
func (r *Registry) SearchByLabel(text string, limit int) []Candidate {
	normalized := NormalizeLabel(text)
	if normalized == "" {
		return nil
	}

	candidates := make([]Candidate, 0, 8)
	for _, node := range r.nodes {
		score := similarity(normalized, NormalizeLabel(node.Name))
		if score <= 0 {
			continue
		}
		candidates = append(candidates, Candidate{Node: node, Score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Node.Level != candidates[j].Node.Level {
			return candidates[i].Node.Level > candidates[j].Node.Level
		}
		return candidates[i].Node.Code < candidates[j].Node.Code
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// Candidate is one scored search result.
type Candidate struct {
	Node  *AccountNode `json:"node"`
	Score float64      `json:"score"`
}
