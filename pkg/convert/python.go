package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// DefaultInterpreter is used when PythonMerger.Interpreter is empty.
const DefaultInterpreter = "python3"

// mergeScript is run as `python -c mergeScript <sharded> <output>`.
const mergeScript = `import sys
from pytorch_lightning.utilities.deepspeed import convert_zero_checkpoint_to_fp32_state_dict
convert_zero_checkpoint_to_fp32_state_dict(sys.argv[1], sys.argv[2])
`

// PythonMerger delegates the merge to PyTorch Lightning's
// convert_zero_checkpoint_to_fp32_state_dict in a Python subprocess.
type PythonMerger struct {
	// Interpreter is the Python executable, DefaultInterpreter if empty.
	Interpreter string

	// Env is appended to the current process environment.
	Env []string
}

// MergeError is returned when the merge subprocess fails. Output holds what
// the subprocess printed, usually a Python traceback.
type MergeError struct {
	Interpreter string
	Output      string
	Err         error
}

func (e *MergeError) Error() string {
	output := strings.TrimSpace(e.Output)
	if output == "" {
		return fmt.Sprintf("checkpoint merge failed: %v", e.Err)
	}
	return fmt.Sprintf("checkpoint merge failed: %v, output: %s", e.Err, output)
}

func (e *MergeError) Unwrap() error { return e.Err }

func (p *PythonMerger) interpreter() string {
	if p.Interpreter == "" {
		return DefaultInterpreter
	}
	return p.Interpreter
}

func (p *PythonMerger) Merge(ctx context.Context, shardedPath, outputPath string) error {
	interpreter := p.interpreter()

	cmd := exec.CommandContext(ctx, interpreter, "-c", mergeScript, shardedPath, outputPath)
	if len(p.Env) > 0 {
		cmd.Env = append(os.Environ(), p.Env...)
	}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if DebugLog != nil {
		DebugLog("running %s to merge %s", interpreter, shardedPath)
	}

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return &MergeError{Interpreter: interpreter, Output: output.String(), Err: err}
	}

	if DebugLog != nil && output.Len() > 0 {
		DebugLog("merge output: %s", strings.TrimSpace(output.String()))
	}
	return nil
}
