// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"fieldsales-workers/internal/common/validation"
)

var (
	ErrDuplicate = errors.New("duplicate worker")
	ErrNotFound  = errors.New("worker not found")
)

var errorCodePattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*(_[A-Z0-9]+)*$`)

func Load(path string) (*WorkerRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg WorkerRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// Save writes reg as indented JSON and stamps LastUpdated.
func (r *WorkerRegistry) Save(path string, now time.Time) error {
	r.LastUpdated = now.UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func (r *WorkerRegistry) Find(taskType string) (*Worker, bool) {
	for i := range r.Workers {
		if r.Workers[i].TaskType == taskType {
			return &r.Workers[i], true
		}
	}
	return nil, false
}

func (r *WorkerRegistry) Add(w Worker) error {
	for _, existing := range r.Workers {
		if existing.ID == w.ID || existing.TaskType == w.TaskType {
			return fmt.Errorf("%w: %s", ErrDuplicate, w.ID)
		}
	}
	r.Workers = append(r.Workers, w)
	return nil
}

// Update sets one field of the worker with the given id.
func (r *WorkerRegistry) Update(id, field, value string) error {
	var w *Worker
	for i := range r.Workers {
		if r.Workers[i].ID == id {
			w = &r.Workers[i]
			break
		}
	}
	if w == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	switch field {
	case "status":
		w.ImplementationStatus = value
	case "version":
		w.Version = value
	case "displayName":
		w.DisplayName = value
	case "description":
		w.Description = value
	case "category":
		w.Category = value
	case "timeout":
		w.Timeout = value
	case "retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		w.Retries = n
	default:
		return fmt.Errorf("unknown field: %s", field)
	}
	return nil
}

// Validate returns every problem found, one message per problem.
func (r *WorkerRegistry) Validate() []string {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if r.Version == "" {
		add("registry version is empty")
	}
	ids := map[string]bool{}
	types := map[string]bool{}
	for i, w := range r.Workers {
		name := w.ID
		if name == "" {
			name = fmt.Sprintf("workers[%d]", i)
			add("%s: id is empty", name)
		}
		if ids[w.ID] {
			add("%s: duplicate id", name)
		}
		ids[w.ID] = true
		if types[w.TaskType] {
			add("%s: duplicate taskType %s", name, w.TaskType)
		}
		types[w.TaskType] = true

		if err := validation.ValidateTaskType(w.TaskType); err != nil {
			add("%s: %v", name, err)
		}
		if !validStatus(w.ImplementationStatus) {
			add("%s: status %q must be one of %s", name, w.ImplementationStatus, strings.Join(Statuses, ", "))
		}
		if d, err := time.ParseDuration(w.Timeout); err != nil || d <= 0 {
			add("%s: timeout %q is not a positive duration", name, w.Timeout)
		}
		if w.Retries < 0 {
			add("%s: retries must not be negative", name)
		}
		for _, code := range w.ErrorCodes {
			if !errorCodePattern.MatchString(code) {
				add("%s: error code %q must be UPPER_SNAKE_CASE", name, code)
			}
		}
		for label, schema := range map[string]map[string]interface{}{"inputSchema": w.InputSchema, "outputSchema": w.OutputSchema} {
			if len(schema) == 0 {
				continue
			}
			raw, err := json.Marshal(schema)
			if err == nil {
				_, err = validation.CompileDocumentSchema(string(raw))
			}
			if err != nil {
				add("%s: %s: %v", name, label, err)
			}
		}
	}
	sort.Strings(problems)
	return problems
}

// Diff compares the registry with the task types a binary registers.
// missing are registered in code but absent from the registry; orphaned are
// listed in the registry but never registered.
func (r *WorkerRegistry) Diff(registered []string) (missing, orphaned []string) {
	known := map[string]bool{}
	for _, t := range registered {
		known[t] = true
		if _, ok := r.Find(t); !ok {
			missing = append(missing, t)
		}
	}
	for _, w := range r.Workers {
		if !known[w.TaskType] {
			orphaned = append(orphaned, w.TaskType)
		}
	}
	sort.Strings(missing)
	sort.Strings(orphaned)
	return missing, orphaned
}

func validStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}
