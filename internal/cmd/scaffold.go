package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"fieldsales-workers/pkg/registry"
)

// scaffoldData feeds the worker templates.
type scaffoldData struct {
	Name        string
	PackageName string
	TaskType    string
	Description string
	Input       []field
	Output      []field
	ErrorCodes  []string
	NeedsTime   bool
}

type field struct {
	Name string
	Type string
	Tag  string
	Doc  string
}

func newScaffoldCmd(path *string) *cobra.Command {
	var (
		outDir string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "scaffold <id>",
		Short: "Generate a worker package skeleton from its registry entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Load(*path)
			if err != nil {
				return err
			}
			var w *registry.Worker
			for i := range reg.Workers {
				if reg.Workers[i].ID == args[0] {
					w = &reg.Workers[i]
				}
			}
			if w == nil {
				return fmt.Errorf("%w: %s", registry.ErrNotFound, args[0])
			}

			files, err := renderWorker(*w)
			if err != nil {
				return err
			}
			dir := filepath.Join(outDir, w.Category, w.TaskType)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			names := make([]string, 0, len(files))
			for name := range files {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				target := filepath.Join(dir, name)
				if _, err := os.Stat(target); err == nil && !force {
					return fmt.Errorf("%s exists (use --force to overwrite)", target)
				} else if err != nil && !errors.Is(err, os.ErrNotExist) {
					return err
				}
				if err := os.WriteFile(target, files[name], 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "generated %s\n", target)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nRegister %s.TaskType in cmd/worker-manager and internal/workers/catalog.go.\n", scaffoldPackage(w.TaskType))
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "internal/workers", "root of the worker packages")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	return cmd
}

// renderWorker returns the gofmt'ed files of a new worker package keyed by file name.
func renderWorker(w registry.Worker) (map[string][]byte, error) {
	data := scaffoldData{
		Name:        w.DisplayName,
		PackageName: scaffoldPackage(w.TaskType),
		TaskType:    w.TaskType,
		Description: w.Description,
		Input:       schemaFields(w.InputSchema),
		Output:      schemaFields(w.OutputSchema),
	}
	for _, f := range append(append([]field{}, data.Input...), data.Output...) {
		if strings.Contains(f.Type, "time.Time") {
			data.NeedsTime = true
		}
	}
	for _, code := range w.ErrorCodes {
		if code != "VALIDATION_FAILED" && code != "SESSION_EXPIRED" {
			data.ErrorCodes = append(data.ErrorCodes, code)
		}
	}

	files := make(map[string][]byte, len(scaffoldTemplates))
	for name, src := range scaffoldTemplates {
		tmpl, err := template.New(name).Funcs(template.FuncMap{"sentinel": sentinelName}).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("render %s: %w", name, err)
		}
		out, err := format.Source(buf.Bytes())
		if err != nil {
			return nil, fmt.Errorf("format %s: %w", name, err)
		}
		files[name] = out
	}
	return files, nil
}

func scaffoldPackage(taskType string) string {
	return strings.ReplaceAll(taskType, "-", "")
}

// sentinelName turns ORDER_NOT_FOUND into ErrOrderNotFound.
func sentinelName(code string) string {
	var b strings.Builder
	b.WriteString("Err")
	for _, part := range strings.Split(strings.ToLower(code), "_") {
		if part != "" {
			b.WriteString(strings.ToUpper(part[:1]) + part[1:])
		}
	}
	return b.String()
}

// schemaFields maps the top-level properties of a JSON schema onto struct
// fields, sorted by name. principal is skipped; every input carries it.
func schemaFields(schema map[string]interface{}) []field {
	props, _ := schema["properties"].(map[string]interface{})
	names := make([]string, 0, len(props))
	for name := range props {
		if name != "principal" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	fields := make([]field, 0, len(names))
	for _, name := range names {
		details, _ := props[name].(map[string]interface{})
		f := field{
			Name: exportedName(name),
			Type: goType(details),
			Tag:  fmt.Sprintf("`json:%q`", name+",omitempty"),
		}
		if d, ok := details["description"].(string); ok {
			f.Doc = d
		}
		fields = append(fields, f)
	}
	return fields
}

func goType(details map[string]interface{}) string {
	switch details["type"] {
	case "string":
		if details["format"] == "date-time" {
			return "time.Time"
		}
		return "string"
	case "integer":
		return "int"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "object":
		return "map[string]interface{}"
	case "array":
		if items, ok := details["items"].(map[string]interface{}); ok {
			if t := goType(items); t != "interface{}" {
				return "[]" + t
			}
		}
		return "[]interface{}"
	}
	return "interface{}"
}

func exportedName(s string) string {
	if s == "" {
		return s
	}
	name := strings.ToUpper(s[:1]) + s[1:]
	if strings.HasSuffix(name, "Id") {
		name = strings.TrimSuffix(name, "Id") + "ID"
	}
	return name
}

var scaffoldTemplates = map[string]string{
	"config.go": `package {{ .PackageName }}

import (
	"time"

	"fieldsales-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(app *config.Config) *Config {
	return &Config{
		Timeout: config.GetDuration(config.GetWorkerConfig(app, TaskType).Timeout),
	}
}
`,
	"models.go": `package {{ .PackageName }}

import (
{{- if .NeedsTime }}
	"time"
{{ end }}
	"fieldsales-workers/internal/access"
)

type Input struct {
	Principal access.Principal ` + "`json:\"principal\"`" + `
{{- range .Input }}
{{- if .Doc }}
	// {{ .Doc }}
{{- end }}
	{{ .Name }} {{ .Type }} {{ .Tag }}
{{- end }}
}

type Output struct {
{{- range .Output }}
{{- if .Doc }}
	// {{ .Doc }}
{{- end }}
	{{ .Name }} {{ .Type }} {{ .Tag }}
{{- end }}
}
`,
	"handler.go": `package {{ .PackageName }}

import (
	"context"
	"errors"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/camunda"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
)

const TaskType = "{{ .TaskType }}"

var (
	ErrValidation = errors.New("VALIDATION_FAILED")
{{- range .ErrorCodes }}
	{{ sentinel . }} = errors.New("{{ . }}")
{{- end }}
)

var errorMappings = []apperrors.Mapping{
	{Sentinel: access.ErrNoPrincipal, Code: apperrors.ErrCodeSessionExpired},
	{Sentinel: ErrValidation, Code: apperrors.ErrCodeValidationFailed},
}

{{ if .Description }}// Handler runs {{ .TaskType }}: {{ .Description }}
{{ end -}}
type Handler struct {
	config *Config
	logger logger.Logger
	runner *camunda.JobRunner
	now    func() time.Time
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		logger: log,
		runner: camunda.NewJobRunner(TaskType, config.Timeout, log),
		now:    time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Run(h.runner, client, job, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	out, err := h.execute(ctx, input)
	if err != nil {
		return nil, apperrors.FromSentinel(err, errorMappings...)
	}
	return out, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if err := input.Principal.Validate(); err != nil {
		return nil, err
	}
	// TODO: implement {{ .TaskType }}
	return &Output{}, nil
}
`,
}
