package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"lexsim-api/internal/application/simulation"
	"lexsim-api/internal/client"
	"lexsim-api/internal/config"
	"lexsim-api/internal/interfaces/http/dto"
	"lexsim-api/internal/render"
	apperrors "lexsim-api/pkg/errors"
)

type simulateOptions struct {
	context      string
	contextFile  string
	subject      string
	level        string
	jurisdiction string
	objective    string
	duration     int
	constraints  []string

	prompt      string
	maxSteps    int
	temperature float64

	output string
	format string
	html   bool
}

func newSimulateCmd(root *rootOptions) *cobra.Command {
	opts := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Genera una simulación de juicio",
		Example: `  lexsim simulate --context-file caso.txt --subject civil --output caso.md --format md
  lexsim simulate --prompt "Simulate a contract dispute" --max-steps 3`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := opts.request(cmd)
			if err != nil {
				return err
			}

			body, err := root.client().Simulate(cmd.Context(), req)
			if err != nil {
				return describeAPIError(err)
			}

			result, err := render.Decode(body)
			if err != nil {
				return err
			}
			view := render.Build(result)
			out := cmd.OutOrStdout()
			if opts.html {
				err = render.HTML(out, view)
			} else {
				err = render.Text(out, view)
			}
			if err != nil {
				return err
			}
			return opts.writeDownload(cmd, result)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.context, "context", "", "contexto del caso")
	f.StringVar(&opts.contextFile, "context-file", "", "archivo con el contexto del caso (- para stdin)")
	f.StringVar(&opts.subject, "subject", "", "materia: penal, civil, laboral, administrativo, otro")
	f.StringVar(&opts.level, "level", "", "nivel: basico, intermedio, avanzado")
	f.StringVar(&opts.jurisdiction, "jurisdiction", "", "jurisdicción")
	f.StringVar(&opts.objective, "objective", "", "objetivo didáctico")
	f.IntVar(&opts.duration, "duration", 0, "duración en minutos (30-480)")
	f.StringArrayVar(&opts.constraints, "constraint", nil, "restricción adicional (repetible)")
	f.StringVar(&opts.prompt, "prompt", "", "escenario libre; usa el formato de pasos")
	f.IntVar(&opts.maxSteps, "max-steps", 0, "máximo de pasos (solo con --prompt)")
	f.Float64Var(&opts.temperature, "temperature", 0, "temperatura 0-1 (solo con --prompt)")
	f.StringVarP(&opts.output, "output", "o", "", "guarda el resultado en este archivo")
	f.StringVar(&opts.format, "format", "", "formato del archivo: json, md, html (por defecto según la extensión)")
	f.BoolVar(&opts.html, "html", false, "imprime el resultado como HTML")

	return cmd
}

// request 在本地复用服务端的校验规则，校验失败时不发起网络请求
func (o *simulateOptions) request(cmd *cobra.Command) (dto.SimulateRequest, error) {
	cfg, err := config.Load()
	if err != nil {
		return dto.SimulateRequest{}, err
	}
	validator := simulation.NewValidator(cfg.Simulation)

	text, err := o.contextText(cmd.InOrStdin())
	if err != nil {
		return dto.SimulateRequest{}, err
	}

	if strings.TrimSpace(text) == "" && cmd.Flags().Changed("prompt") {
		draft := simulation.StepsDraft{Prompt: o.prompt}
		if cmd.Flags().Changed("temperature") {
			draft.Temperature = &o.temperature
		}
		if cmd.Flags().Changed("max-steps") {
			draft.MaxSteps = &o.maxSteps
		}
		if _, err := validator.ValidateSteps(draft); err != nil {
			return dto.SimulateRequest{}, userError(err)
		}
		return dto.SimulateRequest{
			Prompt:     &o.prompt,
			Parameters: &dto.StepsParameters{Temperature: draft.Temperature, MaxSteps: draft.MaxSteps},
		}, nil
	}

	draft := simulation.SimulationDraft{
		Context:     text,
		Subject:     o.subject,
		Level:       o.level,
		Constraints: o.constraints,
	}
	if cmd.Flags().Changed("jurisdiction") {
		draft.Jurisdiction = &o.jurisdiction
	}
	if cmd.Flags().Changed("objective") {
		draft.Objective = &o.objective
	}
	if cmd.Flags().Changed("duration") {
		draft.DurationMinutes = &o.duration
	}
	in, err := validator.ValidateSimulation(draft)
	if err != nil {
		return dto.SimulateRequest{}, userError(err)
	}
	return client.RequestFromInput(in), nil
}

func (o *simulateOptions) contextText(stdin io.Reader) (string, error) {
	switch o.contextFile {
	case "":
		return o.context, nil
	case "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	default:
		b, err := os.ReadFile(o.contextFile)
		if err != nil {
			return "", fmt.Errorf("read context file: %w", err)
		}
		return string(b), nil
	}
}

func (o *simulateOptions) writeDownload(cmd *cobra.Command, result *render.Result) error {
	if o.output == "" {
		return nil
	}
	format, err := o.downloadFormat()
	if err != nil {
		return err
	}
	data, err := render.Download(result, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(o.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", o.output, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Resultado guardado en %s\n", o.output)
	return nil
}

func (o *simulateOptions) downloadFormat() (render.Format, error) {
	if o.format != "" {
		return render.ParseFormat(o.format)
	}
	switch {
	case strings.HasSuffix(o.output, ".md"):
		return render.FormatMarkdown, nil
	case strings.HasSuffix(o.output, ".html"):
		return render.FormatHTML, nil
	default:
		return render.FormatJSON, nil
	}
}

func userError(err error) error {
	if apperrors.IsAppError(err) {
		return errors.New(apperrors.AsAppError(err).Message)
	}
	return err
}

func describeAPIError(err error) error {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.RetryAfter > 0 {
		return fmt.Errorf("%s (reintente en %d s)", apiErr.Message, apiErr.RetryAfter)
	}
	return errors.New(apiErr.Message)
}

func newRequestID() string {
	return uuid.NewString()
}
