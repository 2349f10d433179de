package neural

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ErrModelNotFound is returned when the model artifact does not exist.
var ErrModelNotFound = errors.New("neural: model artifact not found")

// ONNXRuntime opens sessions with the ONNX Runtime shared library. The
// library environment is initialized once per process; a failed
// initialization is retried by the next Open.
type ONNXRuntime struct {
	// LibraryPath points at libonnxruntime; empty uses the loader default.
	LibraryPath string
	// Threads caps intra- and inter-op parallelism. Zero means 1.
	Threads int
}

// initOnSuccess runs an initializer until it succeeds once. A failed attempt
// is not remembered, so a later caller tries again.
type initOnSuccess struct {
	mu   sync.Mutex
	done bool
}

func (o *initOnSuccess) Do(fn func() error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done {
		return nil
	}
	if err := fn(); err != nil {
		return err
	}
	o.done = true
	return nil
}

var ortInit initOnSuccess

func (r *ONNXRuntime) init() error {
	return ortInit.Do(func() error {
		if ort.IsInitialized() {
			return nil
		}
		if r.LibraryPath != "" {
			ort.SetSharedLibraryPath(r.LibraryPath)
		}
		return ort.InitializeEnvironment()
	})
}

// Open loads modelPath and binds every declared input and output by name.
func (r *ONNXRuntime) Open(ctx context.Context, modelPath string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(modelPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
		}
		return nil, fmt.Errorf("neural: stat model: %w", err)
	}
	if err := r.init(); err != nil {
		return nil, fmt.Errorf("neural: init onnxruntime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("neural: inspect model: %w", err)
	}
	inNames := make([]string, len(inputs))
	for i, in := range inputs {
		inNames[i] = in.Name
	}
	outNames := make([]string, len(outputs))
	for i, out := range outputs {
		outNames[i] = out.Name
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("neural: session options: %w", err)
	}
	defer opts.Destroy()

	threads := max(r.Threads, 1)
	if err := opts.SetIntraOpNumThreads(threads); err != nil {
		return nil, fmt.Errorf("neural: intra-op threads: %w", err)
	}
	if err := opts.SetInterOpNumThreads(threads); err != nil {
		return nil, fmt.Errorf("neural: inter-op threads: %w", err)
	}

	sess, err := ort.NewDynamicAdvancedSession(modelPath, inNames, outNames, opts)
	if err != nil {
		return nil, fmt.Errorf("neural: create session: %w", err)
	}
	return &onnxSession{sess: sess, inputs: inNames, outputs: outNames}, nil
}

type onnxSession struct {
	sess    *ort.DynamicAdvancedSession
	inputs  []string
	outputs []string
}

// Run matches inputs to the model's declared input names. Output tensors are
// allocated by the runtime and copied out before being destroyed.
func (s *onnxSession) Run(ctx context.Context, inputs []Tensor) ([]Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	byName := make(map[string]Tensor, len(inputs))
	for _, t := range inputs {
		byName[t.Name] = t
	}

	in := make([]ort.Value, len(s.inputs))
	defer func() {
		for _, v := range in {
			if v != nil {
				v.Destroy()
			}
		}
	}()
	for i, name := range s.inputs {
		t, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("neural: missing input %q", name)
		}
		v, err := ort.NewTensor(ort.NewShape(t.Shape...), t.Data)
		if err != nil {
			return nil, fmt.Errorf("neural: input %q: %w", name, err)
		}
		in[i] = v
	}

	out := make([]ort.Value, len(s.outputs))
	defer func() {
		for _, v := range out {
			if v != nil {
				v.Destroy()
			}
		}
	}()
	if err := s.sess.Run(in, out); err != nil {
		return nil, err
	}

	result := make([]Tensor, 0, len(out))
	for i, v := range out {
		ft, ok := v.(*ort.Tensor[float32])
		if !ok {
			return nil, fmt.Errorf("neural: output %q is not float32", s.outputs[i])
		}
		data := ft.GetData()
		cp := make([]float32, len(data))
		copy(cp, data)
		result = append(result, Tensor{
			Name:  s.outputs[i],
			Shape: append([]int64(nil), ft.GetShape()...),
			Data:  cp,
		})
	}
	return result, nil
}

func (s *onnxSession) Close() error {
	return s.sess.Destroy()
}
