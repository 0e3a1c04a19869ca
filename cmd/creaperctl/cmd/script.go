package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/wildfly-extras/creaper-sub003/cli"
	"github.com/wildfly-extras/creaper-sub003/online"
	"github.com/wildfly-extras/creaper-sub003/protocol"
)

// Script is a list of configuration steps applied in order by apply.
//
//	commands:
//	  - cli: /subsystem=logging/logger=org.example:add(level=DEBUG)
//	  - name: tune undertow
//	    operation:
//	      address: /subsystem=undertow
//	      name: write-attribute
//	      params: {name: statistics-enabled, value: true}
//	  - batch:
//	      - /system-property=a:add(value=1)
//	      - /system-property=b:add(value=2)
//	reload_if_required: true
type Script struct {
	Commands         []Step `yaml:"commands"`
	ReloadIfRequired bool   `yaml:"reload_if_required"`
}

// Step is one script entry. Exactly one of CLI, Operation or Batch is set.
type Step struct {
	Name      string         `yaml:"name"`
	CLI       string         `yaml:"cli"`
	Operation *OperationStep `yaml:"operation"`
	Batch     []string       `yaml:"batch"`
	// IgnoreFailure accepts a failed outcome; transport errors still fail.
	IgnoreFailure bool `yaml:"ignore_failure"`
}

// OperationStep is a structured operation.
type OperationStep struct {
	Address string         `yaml:"address"`
	Name    string         `yaml:"name"`
	Params  map[string]any `yaml:"params"`
}

// ParseScript decodes and validates a YAML script.
func ParseScript(r io.Reader) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty script")
		}
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	for i, st := range s.Commands {
		if err := st.validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return &s, nil
}

func (s Step) validate() error {
	set := 0
	if s.CLI != "" {
		set++
	}
	if s.Operation != nil {
		set++
		if s.Operation.Name == "" {
			return errors.New("operation without a name")
		}
	}
	if len(s.Batch) > 0 {
		set++
	}
	if set != 1 {
		return errors.New("exactly one of cli, operation or batch is required")
	}
	return nil
}

// String names the step in tables and errors.
func (s Step) String() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.CLI != "":
		return s.CLI
	case s.Operation != nil:
		addr := s.Operation.Address
		if addr == "/" {
			addr = ""
		}
		return addr + ":" + s.Operation.Name
	default:
		return fmt.Sprintf("batch of %d", len(s.Batch))
	}
}

// Apply runs the step through the command's client.
func (s Step) Apply(ctx context.Context, cc *online.CommandContext) error {
	var res *online.Result
	var err error
	switch {
	case s.CLI != "" && !cli.IsOperation(s.CLI):
		return cc.Client.ExecuteCLICommand(ctx, s.CLI)
	case s.CLI != "":
		res, err = cc.Client.ExecuteCLI(ctx, s.CLI)
	case s.Operation != nil:
		var op *protocol.Node
		if op, err = s.Operation.build(); err != nil {
			return err
		}
		res, err = cc.Client.Execute(ctx, op)
	default:
		b := online.NewBatch()
		for _, line := range s.Batch {
			op, err := cli.ParseOperation(line, protocol.Root())
			if err != nil {
				return err
			}
			b.Step(op)
		}
		res, err = online.NewOperations(cc.Client).Batch(ctx, b)
	}
	if err != nil {
		return err
	}
	if s.IgnoreFailure {
		return nil
	}
	return res.AssertSuccess(s.String())
}

func (o *OperationStep) build() (*protocol.Node, error) {
	addr := protocol.Root()
	if o.Address != "" {
		var err error
		if addr, err = cli.ParseNodePath(o.Address, protocol.Root()); err != nil {
			return nil, err
		}
	}
	names := make([]string, 0, len(o.Params))
	for name := range o.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	params := make([]protocol.Param, len(names))
	for i, name := range names {
		params[i] = protocol.P(name, o.Params[name])
	}
	return protocol.NewOperation(addr, o.Name, params...), nil
}

// StepReport is the outcome of one applied step.
type StepReport struct {
	Step Step
	Err  error
	Ran  bool
}

// recorder marks a step as run and keeps its error.
type recorder struct {
	step   Step
	report *StepReport
}

func (r recorder) Apply(ctx context.Context, cc *online.CommandContext) error {
	r.report.Ran = true
	r.report.Err = r.step.Apply(ctx, cc)
	return r.report.Err
}

func (r recorder) String() string { return r.step.String() }

// Run applies the script and reports every step. Steps after the first
// failure are not run.
func (s *Script) Run(ctx context.Context, client online.Client) ([]StepReport, error) {
	reports := make([]StepReport, len(s.Commands))
	commands := make([]online.Command, len(s.Commands))
	for i, st := range s.Commands {
		reports[i].Step = st
		commands[i] = recorder{step: st, report: &reports[i]}
	}
	if err := online.Apply(ctx, client, commands...); err != nil {
		return reports, err
	}
	return reports, nil
}
