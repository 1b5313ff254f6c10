package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-jmte/internal/modelfile"
	"github.com/benjaminschreck/go-jmte/pkg/jmte"
)

type renderOptions struct {
	models      []string
	sets        []string
	output      string
	locale      string
	strict      bool
	interactive bool
}

func newRenderCmd(root *rootOptions) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render [template]",
		Short: "Render a template file (or stdin with -) with a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := root.newEngine()
			if err != nil {
				return err
			}
			return runRender(cmd, engine, args[0], opts, newSurveyPrompter())
		},
	}

	cmd.Flags().StringArrayVarP(&opts.models, "model", "m", nil, "Model file (.json, .yaml, .hcl, .star, .msgpack); repeat to merge")
	cmd.Flags().StringArrayVar(&opts.sets, "set", nil, "Set a model value as KEY=VALUE; repeatable")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write output to a file instead of stdout")
	cmd.Flags().StringVar(&opts.locale, "locale", "", "Locale for renderers and messages (overrides config)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail when any value cannot be resolved")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Prompt for variables missing from the model")
	return cmd
}

func runRender(cmd *cobra.Command, engine *jmte.Engine, templatePath string, opts *renderOptions, prompt prompter) error {
	source, name, err := readTemplate(cmd.InOrStdin(), templatePath)
	if err != nil {
		return err
	}
	engine.SetSourceName(name)
	if opts.locale != "" {
		config := *engine.Config()
		config.Locale = opts.locale
		if err := config.Validate(); err != nil {
			return err
		}
		engine.SetConfig(&config)
	}

	model, err := buildModel(opts.models, opts.sets)
	if err != nil {
		return err
	}

	if opts.interactive {
		used, err := engine.UsedVariables(source)
		if err != nil {
			return err
		}
		if err := askMissing(prompt, used, model); err != nil {
			return err
		}
	}

	collector := jmte.NewCollectingErrorHandler()
	if opts.strict {
		engine.SetErrorHandler(collector)
	}

	output, err := engine.Transform(source, model)
	if err != nil {
		return err
	}
	if opts.strict {
		if err := collector.Err(); err != nil {
			return fmt.Errorf("template %s has unresolved values: %w", name, err)
		}
	}

	if opts.output == "" {
		_, err = io.WriteString(cmd.OutOrStdout(), output)
		return err
	}
	if err := os.WriteFile(opts.output, []byte(output), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// readTemplate reads the template at path, or stdin when path is "-".
func readTemplate(stdin io.Reader, path string) (string, string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("failed to read template from stdin: %w", err)
		}
		return string(data), "<stdin>", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read template: %w", err)
	}
	return string(data), filepath.Base(path), nil
}

// buildModel merges every model file in order and applies KEY=VALUE
// overrides. Dotted keys create nested maps.
func buildModel(files, sets []string) (map[string]any, error) {
	model := map[string]any{}
	for _, file := range files {
		loaded, err := modelfile.Load(file)
		if err != nil {
			return nil, err
		}
		model = modelfile.Merge(model, loaded)
	}

	for _, set := range sets {
		key, value, ok := strings.Cut(set, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected KEY=VALUE", set)
		}
		setPath(model, strings.Split(key, "."), value)
	}
	return model, nil
}

func setPath(model map[string]any, path []string, value any) {
	current := model
	for _, segment := range path[:len(path)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[segment] = next
		}
		current = next
	}
	current[path[len(path)-1]] = value
}
