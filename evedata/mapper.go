package evedata

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/robert-malhotra/go-evedata/internal/item"
)

// The two mapper families (container-facing and description-facing) share
// the same shape: a factory selects a version-bound mapper, the mapper runs
// a fixed sequence of steps, and each step claims the names it consumed from
// a ledger. Whatever is left on a ledger after the run is logged, never
// silently dropped and never fatal. Version generations override individual
// steps and inherit the rest.

// ledger tracks the item names still to map during one mapper run. Steps
// claim names as they consume them; claiming is the only mutation.
type ledger struct {
	order []string
	nodes map[string]*item.Node
}

func newLedger(groups ...[]*item.Node) *ledger {
	l := &ledger{nodes: make(map[string]*item.Node)}
	for _, nodes := range groups {
		for _, n := range nodes {
			l.order = append(l.order, n.Name())
			l.nodes[n.Name()] = n
		}
	}
	return l
}

// names returns the remaining names in their original order. The slice is a
// copy, so steps may claim while iterating it.
func (l *ledger) names() []string {
	out := make([]string, 0, len(l.order))
	for _, name := range l.order {
		if _, ok := l.nodes[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// node returns the still-unclaimed node with the given name, or nil.
func (l *ledger) node(name string) *item.Node {
	return l.nodes[name]
}

// claim removes the name from the ledger and returns its node, or nil if the
// name is absent or already claimed.
func (l *ledger) claim(name string) *item.Node {
	n, ok := l.nodes[name]
	if !ok {
		return nil
	}
	delete(l.nodes, name)
	return n
}

// majorVersion returns the part of a version string before the first dot.
func majorVersion(v string) string {
	if i := strings.IndexByte(v, '.'); i >= 0 {
		return v[:i]
	}
	return v
}

// containerVersionAttr is the root attribute selecting the container mapper.
const containerVersionAttr = "EVEH5Version"

// containerMapperFor returns the container mapper for an EVEH5 version
// string. Only the major number selects the generation.
func containerMapperFor(version string, log *zap.Logger) (containerSteps, error) {
	mk, ok := containerRegistry[majorVersion(version)]
	if !ok {
		return nil, fmt.Errorf("%w: EVEH5 %q", ErrUnsupportedVersion, version)
	}
	return mk(log), nil
}

var containerRegistry = map[string]func(*zap.Logger) containerSteps{
	"5": func(log *zap.Logger) containerSteps { return &containerV5{log: log} },
	"6": func(log *zap.Logger) containerSteps { return &containerV6{containerV5{log: log}} },
	"7": func(log *zap.Logger) containerSteps { return &containerV7{containerV6{containerV5{log: log}}} },
}

// descriptionMapperFor returns the description mapper for an SCML language
// version string.
func descriptionMapperFor(version string, log *zap.Logger) (descriptionSteps, error) {
	mk, ok := descriptionRegistry[version]
	if !ok {
		return nil, fmt.Errorf("%w: SCML %q", ErrUnsupportedVersion, version)
	}
	return mk(log), nil
}

var descriptionRegistry = map[string]func(*zap.Logger) descriptionSteps{
	"9.0": func(log *zap.Logger) descriptionSteps { return &scmlV9e0{log: log} },
	"9.1": func(log *zap.Logger) descriptionSteps { return &scmlV9e1{scmlV9e0{log: log}} },
	"9.2": func(log *zap.Logger) descriptionSteps { return &scmlV9e2{scmlV9e1{scmlV9e0{log: log}}} },
}

// SupportedContainerVersions returns the registered EVEH5 major versions.
func SupportedContainerVersions() []string {
	return registryKeys(containerRegistry)
}

// SupportedDescriptionVersions returns the registered SCML versions.
func SupportedDescriptionVersions() []string {
	return registryKeys(descriptionRegistry)
}

func registryKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
