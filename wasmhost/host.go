package wasmhost

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/inspectIT/inspectit-ocelot-sub003/errors"
	"github.com/inspectIT/inspectit-ocelot-sub003/unit"
	"github.com/inspectIT/inspectit-ocelot-sub003/wasmhost/internal/section"
)

// SectionName is the custom section carrying the applied advice.
const SectionName = "ocelot.instrumentation"

// Config holds configuration for host creation.
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means the wazero default.
	MemoryLimitPages uint32
}

// Visit is one advice woven into the listed methods.
type Visit struct {
	Advice  string
	Methods []string
}

type module struct {
	unit     *unit.Unit
	compiled wazero.CompiledModule
	original []byte
	current  []byte
	visits   []Visit
}

// Host implements unit.Host.
type Host struct {
	ctx         context.Context
	runtime     wazero.Runtime
	transformer unit.Transformer
	modules     map[unit.ID]*module
	mu          sync.RWMutex
}

// New creates a host backed by a fresh wazero runtime. ctx is used for
// compilations triggered through Retransform.
func New(ctx context.Context, cfg *Config) *Host {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	return &Host{
		ctx:     ctx,
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		modules: make(map[unit.ID]*module),
	}
}

// SetTransformer implements unit.Host.
func (h *Host) SetTransformer(t unit.Transformer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transformer = t
}

// Load compiles bin as a new unit called name and reports its first
// definition to the transformer.
func (h *Host) Load(ctx context.Context, name string, bin []byte) (*unit.Unit, error) {
	compiled, err := h.runtime.CompileModule(ctx, bin)
	if err != nil {
		return nil, errors.CompileFailed(name, err)
	}

	// A binary that already carries advice cannot be rebuilt from an
	// uninstrumented original.
	_, woven, err := section.Custom(bin, SectionName)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, errors.CompileFailed(name, err)
	}

	u := &unit.Unit{
		ID:         unit.ID("wasm/" + name),
		Name:       name,
		Methods:    methods(compiled),
		Modifiable: !woven,
	}

	h.mu.Lock()
	if _, exists := h.modules[u.ID]; exists {
		h.mu.Unlock()
		_ = compiled.Close(ctx)
		return nil, errors.New(errors.PhaseHost, errors.KindInvalidInput).
			Unit(name).
			Detail("module already loaded").
			Build()
	}
	original := bytes.Clone(bin)
	h.modules[u.ID] = &module{
		unit:     u,
		compiled: compiled,
		original: original,
		current:  original,
	}
	t := h.transformer
	h.mu.Unlock()

	Logger().Debug("module loaded",
		zap.String("unit", name),
		zap.Int("methods", len(u.Methods)))

	if t == nil {
		return u, nil
	}
	out := t.Transform(u, h.newBuilder(u, original), false)
	if b, ok := out.(*builder); ok && len(b.visits) > 0 && u.Modifiable {
		if err := h.install(ctx, u, out); err != nil {
			return u, err
		}
	}
	return u, nil
}

// LoadDir loads every *.wasm file of dir, named after the file without its
// extension.
func (h *Host) LoadDir(ctx context.Context, dir string) ([]*unit.Unit, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.wasm"))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindInvalidInput, err, "list modules")
	}
	sort.Strings(paths)

	var out []*unit.Unit
	for _, p := range paths {
		bin, err := os.ReadFile(p)
		if err != nil {
			return out, errors.Wrap(errors.PhaseHost, errors.KindInvalidInput, err, "read "+p)
		}
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		u, err := h.Load(ctx, name, bin)
		if err != nil {
			return out, err
		}
		out = append(out, u)
	}
	return out, nil
}

// Unload removes a unit and closes its compiled module.
func (h *Host) Unload(ctx context.Context, id unit.ID) error {
	h.mu.Lock()
	m, ok := h.modules[id]
	delete(h.modules, id)
	h.mu.Unlock()

	if !ok {
		return errors.UnknownUnit(errors.PhaseHost, string(id))
	}
	return m.compiled.Close(ctx)
}

// LoadedUnits implements unit.Host.
func (h *Host) LoadedUnits() []*unit.Unit {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*unit.Unit, 0, len(h.modules))
	for _, m := range h.modules {
		out = append(out, m.unit)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Retransform implements unit.Host. Units are rebuilt in order; the first
// failure ends the batch.
func (h *Host) Retransform(units ...*unit.Unit) error {
	h.mu.RLock()
	t := h.transformer
	h.mu.RUnlock()
	if t == nil {
		return errors.NotInitialized(errors.PhaseHost, "transformer")
	}

	for _, u := range units {
		h.mu.RLock()
		m, ok := h.modules[u.ID]
		h.mu.RUnlock()
		if !ok {
			return errors.UnknownUnit(errors.PhaseHost, u.Name)
		}
		if !m.unit.Modifiable {
			return errors.NotModifiable(errors.PhaseHost, u.Name)
		}

		out := t.Transform(u, h.newBuilder(u, m.original), true)
		if err := h.install(h.ctx, u, out); err != nil {
			return err
		}
	}
	return nil
}

// install rebuilds u from its original binary with the visits of b. A
// finished builder brings its compiled module along.
func (h *Host) install(ctx context.Context, u *unit.Unit, b unit.Builder) error {
	bb, _ := b.(*builder)
	if bb == nil {
		bb = &builder{}
	}

	h.mu.RLock()
	m, ok := h.modules[u.ID]
	h.mu.RUnlock()
	if !ok {
		if bb.compiled != nil {
			_ = bb.compiled.Close(ctx)
		}
		return errors.UnknownUnit(errors.PhaseHost, u.Name)
	}

	visits, bin, compiled := bb.visits, bb.bin, bb.compiled
	if compiled == nil {
		var err error
		bin, compiled, err = h.build(ctx, m.original, visits)
		if err != nil {
			return errors.CompileFailed(u.Name, err)
		}
	}

	h.mu.Lock()
	old := m.compiled
	m.compiled = compiled
	m.current = bin
	m.visits = visits
	h.mu.Unlock()

	if old != nil {
		_ = old.Close(ctx)
	}
	return nil
}

// Visits returns the advice currently woven into id.
func (h *Host) Visits(id unit.ID) []Visit {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if m, ok := h.modules[id]; ok {
		return append([]Visit(nil), m.visits...)
	}
	return nil
}

// Binary returns the current binary of id.
func (h *Host) Binary(id unit.ID) ([]byte, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m, ok := h.modules[id]
	if !ok {
		return nil, false
	}
	return m.current, true
}

// Close releases every compiled module and the runtime.
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	h.modules = make(map[unit.ID]*module)
	h.mu.Unlock()
	return h.runtime.Close(ctx)
}

// methods lists the exported functions as public methods, sorted by name.
func methods(compiled wazero.CompiledModule) []unit.Method {
	exports := compiled.ExportedFunctions()
	names := make([]string, 0, len(exports))
	for name := range exports {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]unit.Method, 0, len(names))
	for _, name := range names {
		def := exports[name]
		args := make([]string, 0, len(def.ParamTypes()))
		for _, p := range def.ParamTypes() {
			args = append(args, api.ValueTypeName(p))
		}
		out = append(out, unit.Method{Name: name, Arguments: args, Visibility: unit.Public})
	}
	return out
}

func encodeVisits(visits []Visit) []byte {
	var b bytes.Buffer
	for _, v := range visits {
		for _, m := range v.Methods {
			fmt.Fprintf(&b, "%s:%s\n", v.Advice, m)
		}
	}
	return b.Bytes()
}

// DecodeVisits parses the payload of the instrumentation section into
// advice/method pairs.
func DecodeVisits(bin []byte) ([][2]string, error) {
	payload, ok, err := section.Custom(bin, SectionName)
	if err != nil || !ok {
		return nil, err
	}
	var out [][2]string
	for _, line := range strings.Split(strings.TrimSpace(string(payload)), "\n") {
		advice, method, found := strings.Cut(line, ":")
		if !found {
			return nil, fmt.Errorf("malformed entry %q", line)
		}
		out = append(out, [2]string{advice, method})
	}
	return out, nil
}

// build appends the visits to original and compiles the result.
func (h *Host) build(ctx context.Context, original []byte, visits []Visit) ([]byte, wazero.CompiledModule, error) {
	bin := original
	if len(visits) > 0 {
		var err error
		bin, err = section.AppendCustom(original, SectionName, encodeVisits(visits))
		if err != nil {
			return nil, nil, err
		}
	}
	compiled, err := h.runtime.CompileModule(ctx, bin)
	if err != nil {
		return nil, nil, err
	}
	return bin, compiled, nil
}

// builder records visits against the exported functions of a unit. Once
// finished it also holds the rebuilt binary and its compiled module.
type builder struct {
	h        *Host
	u        *unit.Unit
	original []byte
	visits   []Visit

	bin      []byte
	compiled wazero.CompiledModule
}

func (h *Host) newBuilder(u *unit.Unit, original []byte) *builder {
	return &builder{h: h, u: u, original: original}
}

// Finish implements unit.Finisher by compiling the rebuilt binary.
func (b *builder) Finish() (unit.Builder, error) {
	if b.compiled != nil || len(b.visits) == 0 {
		return b, nil
	}
	bin, compiled, err := b.h.build(b.h.ctx, b.original, b.visits)
	if err != nil {
		return nil, err
	}
	return &builder{h: b.h, u: b.u, original: b.original, visits: b.visits, bin: bin, compiled: compiled}, nil
}

// Visit implements unit.Builder.
func (b *builder) Visit(advice string, filter unit.MethodFilter) unit.Builder {
	v := Visit{Advice: advice}
	for _, m := range b.u.Methods {
		if filter(m) {
			v.Methods = append(v.Methods, m.Name)
		}
	}
	next := &builder{h: b.h, u: b.u, original: b.original, visits: make([]Visit, 0, len(b.visits)+1)}
	next.visits = append(next.visits, b.visits...)
	if len(v.Methods) > 0 {
		next.visits = append(next.visits, v)
	}
	return next
}
