package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/gorgonia/brainium/config"
	"github.com/gorgonia/brainium/kwargs"
	"github.com/gorgonia/brainium/nn"
	G "gorgonia.org/gorgonia"
)

var (
	confFile = flag.String("config", "", "YAML file of per layer sections")
	dotFile  = flag.String("dot", "", "write the model as a graphviz file")
	batch    = flag.Int("batch", 1, "batch size")
	size     = flag.Int("size", 64, "height and width of the input image")
	classes  = flag.Int("classes", 10, "number of classes")
	thin     = flag.Bool("thin", false, "use depthwise separable convolutions")
	verbose  = flag.Bool("v", false, "print the build log")
)

var classifierSchema = kwargs.New().
	Add("filters", "", 32).
	Add("blocks", "", 2).
	Add("classes", "", 10).
	Add("thin", "", false)

// classifier is a stack of conv/act/pool blocks doubling their filters, then a dense softmax head.
func classifier(m *nn.Model, x *G.Node, args kwargs.Args) (*G.Node, error) {
	ctx := m.Context()
	filters := args.Int("filters", 32)
	for i := 0; i < args.Int("blocks", 2); i++ {
		conv, err := nn.NewConvolution(ctx, m.Opts(kwargs.Args{"filters": filters, "padding": nn.PadSame, "thin": args.Bool("thin", false) && i > 0}))
		if err != nil {
			return nil, err
		}
		act, err := nn.NewActivation(ctx, m.Opts(kwargs.Args{nn.MethodKey: string(nn.ActReLU)}))
		if err != nil {
			return nil, err
		}
		pool, err := nn.NewPooling(ctx, m.Opts(nil))
		if err != nil {
			return nil, err
		}
		for _, l := range []nn.Layer{conv, act, pool} {
			if x, err = m.Call(l, x); err != nil {
				return nil, err
			}
		}
		filters *= 2
	}

	gap, err := nn.NewPooling(ctx, m.Opts(kwargs.Args{nn.MethodKey: string(nn.PoolGlobalAvg)}))
	if err != nil {
		return nil, err
	}
	drop, err := nn.NewDropout(ctx, m.Opts(kwargs.Args{"rate": 0.3}))
	if err != nil {
		return nil, err
	}
	dense, err := nn.NewDense(ctx, m.Opts(kwargs.Args{"units": args.Int("classes", 10), "weight_decay": 1e-4}))
	if err != nil {
		return nil, err
	}
	softmax, err := nn.NewActivation(ctx, m.Opts(kwargs.Args{nn.MethodKey: string(nn.ActSoftmax)}))
	if err != nil {
		return nil, err
	}
	for _, l := range []nn.Layer{gap, drop, dense, softmax} {
		if x, err = m.Call(l, x); err != nil {
			return nil, err
		}
	}
	return x, nil
}

func main() {
	flag.Parse()

	var opts []nn.ContextOpt
	if *confFile != "" {
		sections, err := config.LoadFile(*confFile)
		if err != nil {
			log.Fatal(err)
		}
		opts = append(opts, nn.WithSections(sections))
	}
	ctx := nn.NewContext(opts...)

	input := ctx.Input("image", *batch, 3, *size, *size)
	m, err := nn.NewModel(ctx, input, classifierSchema, kwargs.Args{
		nn.NameKey: "classifier",
		"classes":  *classes,
		"thin":     *thin,
	}, classifier)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	if err := m.Summary(os.Stdout); err != nil {
		log.Fatal(err)
	}
	penalty, err := m.Penalty()
	if err != nil {
		log.Fatal(err)
	}
	if penalty != nil {
		fmt.Printf("Penalty: %v\n", penalty.Shape())
	}

	if *dotFile != "" {
		dot, err := m.ToDot(true)
		if err != nil {
			log.Fatal(err)
		}
		if err := ioutil.WriteFile(*dotFile, []byte(dot), 0644); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %s", *dotFile)
	}
	if *verbose {
		fmt.Print(ctx.BuildLog())
	}
}
