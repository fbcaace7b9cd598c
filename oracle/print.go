package oracle

import (
	"fmt"

	"s2d_lib/utils"

	"gonum.org/v1/gonum/mat"
)

// Print writes the report to utils.Output: channel 0 and the last channel of
// the input, the output channel vector at spatial (0, 0), the output shape
// and the verdict of each check. Does nothing when utils.Verbose is false.
func Print(r *Report) {
	if !utils.Verbose {
		return
	}
	sc := r.Scenario
	mode := "plaintext"
	if r.Encrypted {
		mode = "encrypted"
	}
	fmt.Fprintf(utils.Output, "\n=== Scenario %s: H=%d W=%d C=%d B=%d (%s) ===\n",
		sc.Name, sc.Height, sc.Width, sc.Channels, sc.BlockSize, mode)

	last := r.Input.Shape[3] - 1
	printChannel(r, 0)
	if last > 0 {
		printChannel(r, last)
	}

	fmt.Fprintln(utils.Output, "output[:, 0, 0, :]:")
	for _, v := range r.Origin() {
		fmt.Fprintf(utils.Output, "%v\n", mat.Formatted(mat.NewDense(1, len(v), v), mat.Squeeze()))
	}
	fmt.Fprintf(utils.Output, "output shape: %v\n", r.Output.Shape)
	if r.Encrypted {
		fmt.Fprintf(utils.Output, "max decode error: %.3e\n", r.MaxDecodeError)
		fmt.Fprintf(utils.Output, "HE ops: %s\n", r.Ops)
		if r.WireBytes > 0 {
			fmt.Fprintf(utils.Output, "split wire: %d bytes\n", r.WireBytes)
		}
	}

	verdict("shape", r.ShapeErr == nil, fmt.Sprint(r.ShapeErr))
	verdict("permutation", r.MismatchCount == 0, fmt.Sprintf("%d mismatches", r.MismatchCount))
	for _, m := range r.Mismatches {
		fmt.Fprintf(utils.Output, "    %s\n", m)
	}
	verdict("bijection", r.Bijective, "output values differ from input values")
}

func printChannel(r *Report, ch int) {
	h, w := r.Input.Shape[1], r.Input.Shape[2]
	fmt.Fprintf(utils.Output, "input[0, :, :, %d]:\n", ch)
	fmt.Fprintf(utils.Output, "%v\n", mat.Formatted(mat.NewDense(h, w, channelPlane(r.Input, ch)), mat.Squeeze()))
}

func verdict(check string, ok bool, detail string) {
	if ok {
		fmt.Fprintf(utils.Output, "✅ %s\n", check)
		return
	}
	fmt.Fprintf(utils.Output, "❌ %s: %s\n", check, detail)
}
