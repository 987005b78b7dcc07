package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ascendfaiss/vectorengine/devmem"
	"github.com/ascendfaiss/vectorengine/engine"
	"github.com/ascendfaiss/vectorengine/flagchan"
	"github.com/ascendfaiss/vectorengine/operator"
)

// dispatchKind names the one-off kernel this command precompiles; it
// is not part of the closed distance-kernel enum in the device
// package, only a smoke-test shape for the dispatch layer itself.
const dispatchKind operator.Kind = "dispatch.smoke_sum"

// dispatchCmd exercises C1 (devmem.Tensor), C2 (flagchan completion
// signalling) and C3 (operator dispatch) without going through the
// index/host path, which runs its distance kernels in-process and
// never calls operator.Submit. It precompiles one kernel on a
// single-device engine.Engine, submits it, and busy-polls a
// CompletionToken bound to the flag buffer the submitted kernel writes.
var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Submit a smoke-test kernel through the operator/flagchan dispatch layer",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng := engine.New([]string{"dev0"})
		defer eng.Close()

		desc := operator.OperatorDesc{
			Name:    dispatchKind,
			Inputs:  []operator.TensorDesc{{DType: devmem.DTypeFloat32, Shape: []int{4}}},
			Outputs: []operator.TensorDesc{{DType: devmem.DTypeFloat32, Shape: []int{1}}},
		}
		eng.PrecompileDistanceKernel(desc, []int{4}, sumKernel)

		dispatcher, err := eng.Dispatcher("dev0")
		if err != nil {
			return err
		}
		stream, err := eng.Stream("dev0")
		if err != nil {
			return err
		}
		handle, err := dispatcher.Lookup(dispatchKind, 4)
		if err != nil {
			return err
		}

		in, err := devmem.NewTensor(devmem.DTypeFloat32, 4)
		if err != nil {
			return err
		}
		for i, v := range []float32{1, 2, 3, 4} {
			binary.LittleEndian.PutUint32(in.Bytes()[i*4:(i+1)*4], math.Float32bits(v))
		}
		out, err := devmem.NewTensor(devmem.DTypeFloat32, 1)
		if err != nil {
			return err
		}

		var flag flagchan.FlagBuffer
		token := flagchan.NewCompletionToken("dev0", &flag, 256)
		token.Reset()

		result := operator.Submit(stream, handle, []*devmem.Tensor{in}, []*devmem.Tensor{out}, &flag)

		wait, err := token.Wait(5 * time.Second)
		if err != nil {
			return err
		}
		if wait != flagchan.Ready {
			return fmt.Errorf("kernel did not complete before deadline")
		}
		if err := result.Err(); err != nil {
			return err
		}

		sum := math.Float32frombits(binary.LittleEndian.Uint32(out.Bytes()))
		log.WithFields(logrus.Fields{"device": "dev0", "kind": dispatchKind}).Info("dispatch completed")
		fmt.Printf("sum = %v\n", sum)
		return nil
	},
}

func sumKernel(inputs, outputs []*devmem.Tensor) error {
	in := inputs[0]
	var sum float32
	for i := 0; i < in.Size(0); i++ {
		sum += math.Float32frombits(binary.LittleEndian.Uint32(in.Bytes()[i*4 : i*4+4]))
	}
	binary.LittleEndian.PutUint32(outputs[0].Bytes(), math.Float32bits(sum))
	return nil
}
