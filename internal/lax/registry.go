package lax

import (
	"fmt"
	"strings"
	"sync"

	"github.com/example/go-primparity/internal/runtime/tensor"
)

// Impl evaluates a primitive on concrete operands.
type Impl func(params Params, args []*tensor.Tensor) ([]*tensor.Tensor, error)

// Table is one dispatch table: the primitives one execution strategy knows.
type Table struct {
	Name  string
	impls map[*Primitive]Impl
	order []*Primitive
}

func newTable(name string) *Table {
	return &Table{Name: name, impls: map[*Primitive]Impl{}}
}

func (t *Table) register(p *Primitive, impl Impl) {
	if _, dup := t.impls[p]; dup {
		panic(fmt.Sprintf("lax: %s registered twice in %s table", p, t.Name))
	}

	t.impls[p] = impl
	t.order = append(t.order, p)
}

// Lookup returns the kernel for p.
func (t *Table) Lookup(p *Primitive) (Impl, bool) {
	impl, ok := t.impls[p]
	return impl, ok
}

// Primitives lists the primitives of t sorted by name.
func (t *Table) Primitives() []*Primitive {
	out := append([]*Primitive(nil), t.order...)
	SortPrimitives(out)

	return out
}

// Devices are the hardware targets with backend-specific tables.
var Devices = []string{"cpu", "gpu", "tpu"}

var (
	// Translations holds primitives lowered the same way on every device.
	Translations = newTable("generic")
	// BackendTranslations holds device-specific lowerings.
	BackendTranslations = map[string]*Table{
		"cpu": newTable("cpu"),
		"gpu": newTable("gpu"),
		"tpu": newTable("tpu"),
	}
	// InitialStyle holds primitives that carry a sub-computation.
	InitialStyle = newTable("initial_style")
	// Parallel holds collective primitives evaluated over a named axis.
	Parallel = newTable("parallel")
)

// registerBackends registers impl for p in the backend tables of devices.
func registerBackends(p *Primitive, impl Impl, devices ...string) {
	for _, d := range devices {
		BackendTranslations[d].register(p, impl)
	}
}

// AllPrimitives returns the union of every dispatch table, sorted by name.
func AllPrimitives() []*Primitive {
	seen := map[*Primitive]bool{}

	var out []*Primitive

	tables := []*Table{Translations, InitialStyle, Parallel}
	for _, d := range Devices {
		tables = append(tables, BackendTranslations[d])
	}

	for _, t := range tables {
		for _, p := range t.order {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}

	SortPrimitives(out)

	return out
}

// LookupByName finds a registered primitive by name.
func LookupByName(name string) (*Primitive, bool) {
	for _, p := range AllPrimitives() {
		if p.name == name {
			return p, true
		}
	}

	return nil, false
}

var (
	deviceMu sync.RWMutex
	device   = "cpu"
)

// SetDevice selects the device used for eager dispatch.
func SetDevice(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := BackendTranslations[name]; !ok {
		return fmt.Errorf("lax: unknown device %q (want one of %s)", name, strings.Join(Devices, ", "))
	}

	deviceMu.Lock()
	device = name
	deviceMu.Unlock()

	return nil
}

// Device returns the device used for eager dispatch.
func Device() string {
	deviceMu.RLock()
	defer deviceMu.RUnlock()

	return device
}

func lookupImpl(p *Primitive) (Impl, bool) {
	if impl, ok := BackendTranslations[Device()].Lookup(p); ok {
		return impl, true
	}

	for _, t := range []*Table{Translations, InitialStyle, Parallel} {
		if impl, ok := t.Lookup(p); ok {
			return impl, true
		}
	}

	return nil, false
}
