// Command fqproc runs a configured FASTQ/FASTA/BAM read-processing
// pipeline (spec.md §1/§4): trim, filter, extract, demultiplex, and write
// steps chained together over one or more input segments, plus an
// optional aggregate JSON report.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"runtime"
	"sort"

	"github.com/grailbio/base/cmdutil"
	"v.io/x/lib/cmdline"

	"github.com/grailbio/fqproc/pipeconfig"
	"github.com/grailbio/fqproc/report"
	fqrun "github.com/grailbio/fqproc/runtime"
	"github.com/grailbio/fqproc/steps"
)

func newCmdProcess() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "process",
		Short:    "Run a pipeline config against its configured input",
		ArgsName: "config.toml",
	}
	parallelism := cmd.Flags.Int("parallelism", 0, "worker goroutines per parallel stage; 0 = runtime.NumCPU()")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("process takes one config path argument, got %v", argv)
		}
		raw, err := pipeconfig.Load(argv[0])
		if err != nil {
			return err
		}
		cfg, err := pipeconfig.Validate(raw)
		if err != nil {
			return err
		}
		p := *parallelism
		if p <= 0 {
			p = runtime.NumCPU()
		}
		results, err := fqrun.New(cfg, p).Run()
		if err != nil {
			return err
		}
		doc := report.Assemble(results)
		if cfg.ReportPath != "" {
			if err := report.WriteJSON(cfg.ReportPath, doc); err != nil {
				return err
			}
		}
		if cfg.ReportHTMLPath != "" {
			if err := report.WriteHTML(cfg.ReportHTMLPath, doc); err != nil {
				return err
			}
		}
		if cfg.ReportPath == "" && cfg.ReportHTMLPath == "" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		}
		return nil
	})
	return cmd
}

func newCmdValidate() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "validate",
		Short:    "Validate a pipeline config without running it",
		ArgsName: "config.toml",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("validate takes one config path argument, got %v", argv)
		}
		raw, err := pipeconfig.Load(argv[0])
		if err != nil {
			return err
		}
		if _, err := pipeconfig.Validate(raw); err != nil {
			return err
		}
		fmt.Fprintln(env.Stdout, "config is valid")
		return nil
	})
	return cmd
}

func newCmdListSteps() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "list-steps",
		Short: "List every registered step kind",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		names := steps.Names()
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintln(env.Stdout, n)
		}
		return nil
	})
	return cmd
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(&cmdline.Command{
		Name:  "fqproc",
		Short: "FASTQ/FASTA/BAM read-processing pipeline runner",
		Children: []*cmdline.Command{
			newCmdProcess(),
			newCmdValidate(),
			newCmdListSteps(),
		},
	})
}
