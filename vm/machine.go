package vm

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/chazu/ripley/reflectutil"
	"github.com/chazu/ripley/value"
)

// DefaultMaxDepth bounds frame nesting unless overridden with
// WithMaxDepth.
const DefaultMaxDepth = 4096

// MalformedProgramError reports an instruction whose stack or operand
// preconditions do not hold: underflow, a wrongly typed stack slot, a
// terminal stack of the wrong shape, or an unknown opcode. It always
// indicates a bug in program emission, never bad input data.
type MalformedProgramError struct {
	Op     Opcode
	Detail string
}

func (e *MalformedProgramError) Error() string {
	if e.Op == OpInvalid {
		return "malformed program: " + e.Detail
	}
	return fmt.Sprintf("malformed program: %s: %s", e.Op, e.Detail)
}

// DepthExceededError reports a frame stack deeper than the machine's
// configured bound, usually a sign of a cyclic object graph.
type DepthExceededError struct {
	Depth int
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("frame depth limit %d exceeded; object graph may be cyclic", e.Depth)
}

// Machine executes programs against native objects and generic value
// trees. A Machine holds no per-invocation state and is safe for
// concurrent use.
type Machine struct {
	resolver Resolver
	maxDepth int
}

// Option configures a Machine.
type Option func(*Machine)

// WithMaxDepth bounds the frame stack at n. A bound of 0 disables the
// check entirely; a cyclic graph will then recurse until memory runs
// out.
func WithMaxDepth(n int) Option {
	return func(m *Machine) { m.maxDepth = n }
}

// NewMachine returns a Machine dispatching dynamic shapes through
// resolver.
func NewMachine(resolver Resolver, opts ...Option) *Machine {
	m := &Machine{resolver: resolver, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// execution holds the three per-invocation stacks.
type execution struct {
	frames  []Frame
	scratch []any
	results []value.Value
}

var execPool = sync.Pool{
	New: func() any {
		return &execution{
			frames:  make([]Frame, 0, 16),
			scratch: make([]any, 0, 16),
			results: make([]value.Value, 0, 16),
		}
	},
}

func newExecution() *execution {
	return execPool.Get().(*execution)
}

// release zeroes the stacks before pooling so a parked execution does
// not pin object graphs.
func (e *execution) release() {
	for i := range e.frames {
		e.frames[i] = Frame{}
	}
	for i := range e.scratch {
		e.scratch[i] = nil
	}
	for i := range e.results {
		e.results[i] = nil
	}
	e.frames = e.frames[:0]
	e.scratch = e.scratch[:0]
	e.results = e.results[:0]
	execPool.Put(e)
}

func (e *execution) pushScratch(v any) {
	e.scratch = append(e.scratch, v)
}

func (e *execution) popScratch(op Opcode) (any, error) {
	if len(e.scratch) == 0 {
		return nil, &MalformedProgramError{Op: op, Detail: "scratch stack underflow"}
	}
	v := e.scratch[len(e.scratch)-1]
	e.scratch[len(e.scratch)-1] = nil
	e.scratch = e.scratch[:len(e.scratch)-1]
	return v, nil
}

func (e *execution) pushResult(v value.Value) {
	e.results = append(e.results, v)
}

func (e *execution) popResult(op Opcode) (value.Value, error) {
	if len(e.results) == 0 {
		return nil, &MalformedProgramError{Op: op, Detail: "result stack underflow"}
	}
	v := e.results[len(e.results)-1]
	e.results[len(e.results)-1] = nil
	e.results = e.results[:len(e.results)-1]
	return v, nil
}

// peekObject returns the container under construction at the top of
// the result stack.
func (e *execution) peekObject(op Opcode) (*value.Object, error) {
	if len(e.results) == 0 {
		return nil, &MalformedProgramError{Op: op, Detail: "no object under construction"}
	}
	o, ok := e.results[len(e.results)-1].(*value.Object)
	if !ok {
		return nil, &MalformedProgramError{Op: op, Detail: fmt.Sprintf("top of result stack is %s, want object", e.results[len(e.results)-1].Kind())}
	}
	return o, nil
}

func (e *execution) peekArray(op Opcode) (*value.Array, error) {
	if len(e.results) == 0 {
		return nil, &MalformedProgramError{Op: op, Detail: "no array under construction"}
	}
	a, ok := e.results[len(e.results)-1].(*value.Array)
	if !ok {
		return nil, &MalformedProgramError{Op: op, Detail: fmt.Sprintf("top of result stack is %s, want array", e.results[len(e.results)-1].Kind())}
	}
	return a, nil
}

func (m *Machine) pushFrame(e *execution, f Frame) error {
	if m.maxDepth > 0 && len(e.frames) >= m.maxDepth {
		return &DepthExceededError{Depth: m.maxDepth}
	}
	e.frames = append(e.frames, f)
	return nil
}

// popCreateOperand pops the scratch value a Create instruction wraps,
// converting it first when the instruction carries a width or shape
// override.
func (e *execution) popCreateOperand(in *Instruction) (any, error) {
	v, err := e.popScratch(in.Op)
	if err != nil {
		return nil, err
	}
	if in.Type == nil {
		return v, nil
	}
	return reflectutil.Convert(v, in.Type)
}

// Serialize converts a native object into its generic form.
func (m *Machine) Serialize(v any) (value.Value, error) {
	res, err := m.resolver.ForValue(v)
	if err != nil {
		return nil, err
	}
	if res.Program == nil {
		if res.Value == nil {
			return nil, &MalformedProgramError{Op: OpInvalid, Detail: "root resolution carries neither program nor value"}
		}
		return res.Value, nil
	}
	e := newExecution()
	defer e.release()
	if err := m.pushFrame(e, Frame{Object: res.Object, Input: res.Input, Program: res.Program}); err != nil {
		return nil, err
	}
	if err := m.run(e); err != nil {
		return nil, err
	}
	if len(e.results) != 1 || len(e.scratch) != 0 {
		return nil, &MalformedProgramError{Op: OpInvalid, Detail: fmt.Sprintf("terminal stacks hold %d results and %d scratch values, want 1 and 0", len(e.results), len(e.scratch))}
	}
	return e.results[0], nil
}

// Deserialize reconstructs a native of the target type from a generic
// value. The returned native may need a final conversion to the
// caller's exact type: struct programs deliver a pointer to the
// instance they filled.
func (m *Machine) Deserialize(in value.Value, target reflect.Type) (any, error) {
	res, err := m.resolver.ForTarget(target, in)
	if err != nil {
		return nil, err
	}
	if res.Program == nil {
		return res.Native, nil
	}
	e := newExecution()
	defer e.release()
	e.pushScratch(res.Object)
	if err := m.pushFrame(e, Frame{Object: res.Object, Input: res.Input, Program: res.Program}); err != nil {
		return nil, err
	}
	if err := m.run(e); err != nil {
		return nil, err
	}
	if len(e.scratch) != 1 || len(e.results) != 0 {
		return nil, &MalformedProgramError{Op: OpInvalid, Detail: fmt.Sprintf("terminal stacks hold %d scratch values and %d results, want 1 and 0", len(e.scratch), len(e.results))}
	}
	return e.scratch[0], nil
}

// run drains the frame stack, always stepping the top frame.
func (m *Machine) run(e *execution) error {
	for len(e.frames) > 0 {
		f := &e.frames[len(e.frames)-1]
		if f.IP >= len(f.Program.Code) {
			e.frames[len(e.frames)-1] = Frame{}
			e.frames = e.frames[:len(e.frames)-1]
			continue
		}
		in := &f.Program.Code[f.IP]
		f.IP++
		// step may push frames and reallocate e.frames; f is not
		// reused after this call.
		if err := m.step(e, f, in); err != nil {
			return err
		}
	}
	return nil
}

// step executes one instruction for the frame f.
func (m *Machine) step(e *execution, f *Frame, in *Instruction) error {
	switch in.Op {

	// ============ Construction ============
	case OpCreateObject:
		e.pushResult(value.NewObject())

	case OpCreateArray:
		if in.Index < 0 {
			return &MalformedProgramError{Op: in.Op, Detail: fmt.Sprintf("negative array length %d", in.Index)}
		}
		e.pushResult(value.NewArray(in.Index))

	case OpCreateNone:
		e.pushResult(value.None)

	case OpCreateBool:
		v, err := e.popCreateOperand(in)
		if err != nil {
			return err
		}
		b, ok := asBool(v)
		if !ok {
			return &MalformedProgramError{Op: in.Op, Detail: fmt.Sprintf("scratch value %T is not a bool", v)}
		}
		e.pushResult(value.NewBool(b))

	case OpCreateNumber:
		v, err := e.popCreateOperand(in)
		if err != nil {
			return err
		}
		n, ok := asNumber(v)
		if !ok {
			return &MalformedProgramError{Op: in.Op, Detail: fmt.Sprintf("scratch value %T is not numeric", v)}
		}
		e.pushResult(value.NewNumber(n))

	case OpCreateString:
		v, err := e.popCreateOperand(in)
		if err != nil {
			return err
		}
		s, ok := asString(v)
		if !ok {
			return &MalformedProgramError{Op: in.Op, Detail: fmt.Sprintf("scratch value %T is not a string", v)}
		}
		e.pushResult(value.NewString(s))

	// ============ Population ============
	case OpModifyObject:
		val, err := e.popResult(in.Op)
		if err != nil {
			return err
		}
		key, err := e.popResult(in.Op)
		if err != nil {
			return err
		}
		obj, err := e.peekObject(in.Op)
		if err != nil {
			return err
		}
		obj.Put(key, val)

	case OpModifyObjectConstKey:
		val, err := e.popResult(in.Op)
		if err != nil {
			return err
		}
		obj, err := e.peekObject(in.Op)
		if err != nil {
			return err
		}
		obj.PutString(in.Key, val)

	case OpModifyArray:
		iv, err := e.popScratch(in.Op)
		if err != nil {
			return err
		}
		i, ok := toIndex(iv)
		if !ok {
			return &MalformedProgramError{Op: in.Op, Detail: fmt.Sprintf("scratch value %T is not an index", iv)}
		}
		val, err := e.popResult(in.Op)
		if err != nil {
			return err
		}
		arr, err := e.peekArray(in.Op)
		if err != nil {
			return err
		}
		if err := arr.Set(i, val); err != nil {
			return err
		}

	case OpModifyArrayConstIndex:
		val, err := e.popResult(in.Op)
		if err != nil {
			return err
		}
		arr, err := e.peekArray(in.Op)
		if err != nil {
			return err
		}
		if err := arr.Set(in.Index, val); err != nil {
			return err
		}

	// ============ Data movement ============
	case OpPushConst:
		e.pushScratch(in.Const)

	case OpPushField:
		v, err := reflectutil.ReadField(f.Object, in.Field)
		if err != nil {
			return err
		}
		e.pushScratch(v)

	// ============ Dispatch ============
	case OpTransform:
		v, err := e.popScratch(in.Op)
		if err != nil {
			return err
		}
		gv, err := in.Xform.ToGeneric(v)
		if err != nil {
			return err
		}
		if gv == nil {
			gv = value.None
		}
		e.pushResult(gv)

	case OpCall:
		v, err := e.popScratch(in.Op)
		if err != nil {
			return err
		}
		res, err := m.resolver.ForValue(v)
		if err != nil {
			return err
		}
		if res.Program == nil {
			if res.Value == nil {
				return &MalformedProgramError{Op: in.Op, Detail: "resolution carries neither program nor value"}
			}
			e.pushResult(res.Value)
			break
		}
		if err := m.pushFrame(e, Frame{Object: res.Object, Input: res.Input, Program: res.Program}); err != nil {
			return err
		}

	// ============ Navigation ============
	case OpAccessObject:
		key, err := e.popResult(in.Op)
		if err != nil {
			return err
		}
		obj, ok := f.Input.(*value.Object)
		if !ok {
			return &MalformedProgramError{Op: in.Op, Detail: "frame input is not an object"}
		}
		v, ok := obj.Get(key)
		if !ok {
			v = value.None
		}
		e.pushResult(v)

	case OpAccessObjectConstKey:
		obj, ok := f.Input.(*value.Object)
		if !ok {
			return &MalformedProgramError{Op: in.Op, Detail: "frame input is not an object"}
		}
		v, ok := obj.GetString(in.Key)
		if !ok {
			v = value.None
		}
		e.pushResult(v)

	case OpAccessArray:
		iv, err := e.popScratch(in.Op)
		if err != nil {
			return err
		}
		i, ok := toIndex(iv)
		if !ok {
			return &MalformedProgramError{Op: in.Op, Detail: fmt.Sprintf("scratch value %T is not an index", iv)}
		}
		arr, ok := f.Input.(*value.Array)
		if !ok {
			return &MalformedProgramError{Op: in.Op, Detail: "frame input is not an array"}
		}
		if i < 0 || i >= arr.Len() {
			return &value.IndexOutOfRangeError{Index: i, Len: arr.Len()}
		}
		e.pushResult(arr.Get(i))

	case OpAccessArrayConstIndex:
		arr, ok := f.Input.(*value.Array)
		if !ok {
			return &MalformedProgramError{Op: in.Op, Detail: "frame input is not an array"}
		}
		if in.Index < 0 || in.Index >= arr.Len() {
			return &value.IndexOutOfRangeError{Index: in.Index, Len: arr.Len()}
		}
		e.pushResult(arr.Get(in.Index))

	// ============ Extraction ============
	case OpExtractBool:
		v, err := e.popResult(in.Op)
		if err != nil {
			return err
		}
		switch b := v.(type) {
		case *value.Bool:
			e.pushScratch(b.Value())
		default:
			if v.Kind() == value.KindNone {
				e.pushScratch(nil)
				break
			}
			return &value.TypeNotAllowedError{Type: reflect.TypeOf(v), Reason: fmt.Sprintf("expected bool value, got %s", v.Kind())}
		}

	case OpExtractNumber:
		v, err := e.popResult(in.Op)
		if err != nil {
			return err
		}
		switch n := v.(type) {
		case *value.Number:
			e.pushScratch(n.Native())
		default:
			if v.Kind() == value.KindNone {
				e.pushScratch(nil)
				break
			}
			return &value.TypeNotAllowedError{Type: reflect.TypeOf(v), Reason: fmt.Sprintf("expected number value, got %s", v.Kind())}
		}

	case OpExtractString:
		v, err := e.popResult(in.Op)
		if err != nil {
			return err
		}
		switch s := v.(type) {
		case *value.String:
			e.pushScratch(s.Value())
		default:
			if v.Kind() == value.KindNone {
				e.pushScratch(nil)
				break
			}
			return &value.TypeNotAllowedError{Type: reflect.TypeOf(v), Reason: fmt.Sprintf("expected string value, got %s", v.Kind())}
		}

	// ============ Binding ============
	case OpPopField:
		v, err := e.popScratch(in.Op)
		if err != nil {
			return err
		}
		if err := reflectutil.WriteField(f.Object, in.Field, v); err != nil {
			return err
		}

	case OpPopElement:
		v, err := e.popScratch(in.Op)
		if err != nil {
			return err
		}
		if err := reflectutil.SetElement(f.Object, in.Index, v); err != nil {
			return err
		}

	case OpPopEntry:
		v, err := e.popScratch(in.Op)
		if err != nil {
			return err
		}
		key, err := e.popScratch(in.Op)
		if err != nil {
			return err
		}
		if err := reflectutil.SetEntry(f.Object, key, v); err != nil {
			return err
		}

	// ============ Reconstruction ============
	case OpUntransform:
		v, err := e.popResult(in.Op)
		if err != nil {
			return err
		}
		n, err := in.Xform.FromGeneric(v, in.Type)
		if err != nil {
			return err
		}
		e.pushScratch(n)

	case OpRestore:
		v, err := e.popResult(in.Op)
		if err != nil {
			return err
		}
		res, err := m.resolver.ForTarget(in.Type, v)
		if err != nil {
			return err
		}
		if res.Program == nil {
			e.pushScratch(res.Native)
			break
		}
		e.pushScratch(res.Object)
		if err := m.pushFrame(e, Frame{Object: res.Object, Input: res.Input, Program: res.Program}); err != nil {
			return err
		}

	default:
		return &MalformedProgramError{Op: in.Op, Detail: "unknown opcode"}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Native normalization
// ---------------------------------------------------------------------------

func asBool(v any) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	gv, err := value.FromNative(v)
	if err != nil {
		return false, false
	}
	b, ok := gv.(*value.Bool)
	if !ok {
		return false, false
	}
	return b.Value(), true
}

func asString(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	gv, err := value.FromNative(v)
	if err != nil {
		return "", false
	}
	s, ok := gv.(*value.String)
	if !ok {
		return "", false
	}
	return s.Value(), true
}

// asNumber strips the name from named numeric types while keeping
// width and signedness, so Number round-trips exactly.
func asNumber(v any) (any, bool) {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v, true
	}
	gv, err := value.FromNative(v)
	if err != nil {
		return nil, false
	}
	n, ok := gv.(*value.Number)
	if !ok {
		return nil, false
	}
	return n.Native(), true
}

func toIndex(v any) (int, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Int()
		return int(n), int64(int(n)) == n
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		return int(u), uint64(int(u)) == u
	}
	return 0, false
}
