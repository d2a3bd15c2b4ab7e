package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chazu/fieldviz/pkg/graphic"
	"github.com/chazu/fieldviz/pkg/invalidate"
	"github.com/chazu/fieldviz/pkg/scene"
	"github.com/chazu/fieldviz/pkg/sceneconfig"
)

type rootOpts struct {
	logLevel  string
	logFormat string
	time      float64
	timeSet   bool
}

// cli holds what the subcommands share.
type cli struct {
	opts   rootOpts
	out    io.Writer
	logOut io.Writer
	log    *logrus.Logger
}

func newRootCmd(out, logOut io.Writer) *cobra.Command {
	c := &cli{out: out, logOut: logOut}
	root := &cobra.Command{
		Use:           "fieldviz",
		Short:         "Build field visualization graphics from scene files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(c.opts.logLevel, c.opts.logFormat, c.logOut)
			if err != nil {
				return &ExitError{Code: 2, Message: err.Error()}
			}
			c.log = log
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(logOut)
	root.PersistentFlags().StringVar(&c.opts.logLevel, "log-level", "info", "logging level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&c.opts.logFormat, "log-format", "text", "log output format: text or json")

	root.AddCommand(c.newBuildCmd(), c.newCheckCmd(), c.newAttributesCmd())
	return root
}

// newLogger returns a logrus logger writing to w at the given level and
// format.
func newLogger(level, format string, w io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(w)
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log-level %q: must be debug, info, warn or error", level)
	}
	log.SetLevel(lvl)
	switch strings.ToLower(format) {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log-format %q: must be text or json", format)
	}
	return log, nil
}

func (c *cli) load(paths []string) (*scene.Scene, error) {
	sc, err := sceneconfig.Load(scene.Options{Log: c.log}, paths...)
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	if c.opts.timeSet {
		sc.SetTime(c.opts.time)
	}
	return sc, nil
}

func (c *cli) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <path>...",
		Short: "Build every graphic of a scene and summarise the primitives",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.opts.timeSet = cmd.Flags().Changed("time")
			sc, err := c.load(args)
			if err != nil {
				return err
			}
			defer sc.Close()

			reports, buildErr := sc.Rebuild()
			byName := make(map[string]int, len(reports))
			for i, rep := range reports {
				byName[rep.Graphic] = i
			}
			table := tablewriter.NewWriter(c.out)
			table.SetHeader([]string{"graphic", "kind", "built", "batches", "vertices", "skipped", "diagnostics"})
			for _, s := range sc.Graphics() {
				built, batches, vertices, skipped := "-", "0", "0", "0"
				if i, ok := byName[s.Name()]; ok {
					built = reports[i].Performed.String()
					skipped = strconv.Itoa(reports[i].Skipped)
				}
				if st := s.Store(); st != nil {
					batches = strconv.Itoa(st.Len())
					vertices = strconv.Itoa(st.VertexCount())
				}
				table.Append([]string{s.Name(), s.Kind().String(), built, batches, vertices, skipped, strconv.Itoa(len(s.Diagnostics()))})
			}
			table.Render()
			if buildErr != nil {
				return &ExitError{Code: 1, Message: buildErr.Error()}
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&c.opts.time, "time", 0, "build the scene at this time instead of the file's")
	return cmd
}

func (c *cli) newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <path>...",
		Short: "Validate the graphics of a scene without building them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := c.load(args)
			if err != nil {
				return err
			}
			defer sc.Close()

			table := tablewriter.NewWriter(c.out)
			table.SetHeader([]string{"graphic", "level", "message"})
			failed := 0
			for _, s := range sc.Graphics() {
				diags, err := graphic.Validate(s)
				if err != nil {
					failed++
				}
				for _, d := range diags {
					table.Append([]string{s.Name(), d.Level.String(), d.Message})
				}
			}
			table.Render()
			if failed > 0 {
				return &ExitError{Code: 1, Message: fmt.Sprintf("%d graphic(s) cannot be built", failed)}
			}
			fmt.Fprintf(c.out, "%d graphic(s) ok\n", sc.Len())
			return nil
		},
	}
}

func (c *cli) newAttributesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attributes",
		Short: "List the graphic attributes and the rebuild each change needs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table := tablewriter.NewWriter(c.out)
			table.SetHeader([]string{"attribute", "on change"})
			for _, name := range graphic.Attributes() {
				table.Append([]string{name, invalidate.ForAttribute(name).String()})
			}
			table.Render()
			return nil
		},
	}
}
