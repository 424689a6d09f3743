package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/validate"
	"github.com/magabrotheeeer/contractor-assistant/internal/llm"
)

// Persona ассистент с собственным набором инструментов.
type Persona string

const (
	PersonaEstimating Persona = "estimating"
	PersonaProjects   Persona = "projects"
	PersonaCRM        Persona = "crm"
	PersonaFinance    Persona = "finance"
)

// Registry неизменяемый набор инструментов персоны.
type Registry struct {
	persona    Persona
	system     string
	toolChoice llm.ToolChoice
	defs       []Definition
	byName     map[string]Definition
	validate   *validator.Validate
}

func newRegistry(p Persona, choice llm.ToolChoice, system string, kinds ...Kind) *Registry {
	r := &Registry{
		persona:    p,
		system:     system,
		toolChoice: choice,
		byName:     make(map[string]Definition, len(kinds)),
		validate:   validate.New(),
	}
	for _, k := range kinds {
		d, ok := catalog[k]
		if !ok {
			panic(fmt.Sprintf("tools: persona %s references unknown tool %s", p, k))
		}
		r.defs = append(r.defs, d)
		r.byName[string(k)] = d
	}
	return r
}

var registries = map[Persona]*Registry{
	PersonaEstimating: newRegistry(PersonaEstimating, llm.ToolChoiceAuto, estimatingPrompt,
		KindLookupClient, KindListProjects, KindCreateEstimate, KindListEstimates),
	PersonaProjects: newRegistry(PersonaProjects, llm.ToolChoiceRequired, projectsPrompt,
		KindLookupClient, KindListProjects, KindAddProject, KindUpdateProjectStatus, KindAddTask, KindListTasks),
	PersonaCRM: newRegistry(PersonaCRM, llm.ToolChoiceAuto, crmPrompt,
		KindLookupClient, KindAddClient, KindAddClientNote, KindListProjects, KindDraftEmail),
	PersonaFinance: newRegistry(PersonaFinance, llm.ToolChoiceAuto, financePrompt,
		KindListInvoices, KindCreateInvoice, KindLogExpense, KindGetFinancialSummary, KindListEstimates),
}

// For возвращает реестр персоны; неизвестная персона даёт apperr.ErrNotFound.
func For(p Persona) (*Registry, error) {
	r, ok := registries[p]
	if !ok {
		return nil, fmt.Errorf("tools.For: %w: unknown persona %q", apperr.ErrNotFound, p)
	}
	return r, nil
}

// Personas возвращает все персоны в алфавитном порядке.
func Personas() []Persona {
	out := make([]Persona, 0, len(registries))
	for p := range registries {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Persona имя персоны.
func (r *Registry) Persona() Persona { return r.persona }

// SystemPrompt системная инструкция персоны.
func (r *Registry) SystemPrompt() string { return r.system }

// ToolChoice политика вызова инструментов персоны.
func (r *Registry) ToolChoice() llm.ToolChoice { return r.toolChoice }

// Kinds инструменты персоны в порядке объявления.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d.Kind)
	}
	return out
}

// LLMTools объявления инструментов для модели.
func (r *Registry) LLMTools() []llm.Tool {
	out := make([]llm.Tool, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d.LLMTool())
	}
	return out
}

// Decode проверяет и декодирует аргументы вызова. Неизвестный инструмент,
// отсутствующий обязательный аргумент или неверное значение дают
// apperr.ErrValidation с понятным модели сообщением.
func (r *Registry) Decode(name string, raw json.RawMessage) (Command, error) {
	def, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: tool %q is not available for %s", apperr.ErrValidation, name, r.persona)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: arguments must be a JSON object", apperr.ErrValidation)
	}
	var missing []string
	for _, req := range def.Schema.Required {
		if !present(fields[req]) {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required argument(s): %v", apperr.ErrValidation, missing)
	}

	cmd := def.newArgs()
	if err := json.Unmarshal(raw, cmd); err != nil {
		return nil, fmt.Errorf("%w: invalid arguments: %v", apperr.ErrValidation, err)
	}
	if err := r.validate.Struct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrValidation, validate.Message(err))
	}
	return cmd, nil
}

// present сообщает, что аргумент передан и не пуст.
func present(v json.RawMessage) bool {
	s := string(bytes.TrimSpace(v))
	return s != "" && s != "null" && s != `""`
}
