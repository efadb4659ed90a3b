package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"

	"github.com/orvane/docflow-backend/internal/actions"
	"github.com/orvane/docflow-backend/internal/repos"
	"github.com/orvane/docflow-backend/internal/types"
)

// Template definitions are authored as YAML documents and loaded through
// Loader, which validates the graph before anything is persisted.

type TemplateDef struct {
	InternalName  string          `yaml:"internal_name"`
	Label         string          `yaml:"label"`
	AutoLaunch    bool            `yaml:"auto_launch"`
	DocumentTypes []string        `yaml:"document_types"`
	States        []StateDef      `yaml:"states"`
	Transitions   []TransitionDef `yaml:"transitions"`
}

type StateDef struct {
	Label       string          `yaml:"label"`
	Initial     bool            `yaml:"initial"`
	Completion  int             `yaml:"completion"`
	Actions     []ActionDef     `yaml:"actions"`
	Escalations []EscalationDef `yaml:"escalations"`
}

type ActionDef struct {
	Label         string         `yaml:"label"`
	When          string         `yaml:"when"`
	ActionType    string         `yaml:"action_type"`
	Enabled       *bool          `yaml:"enabled"`
	Condition     string         `yaml:"condition"`
	Configuration map[string]any `yaml:"configuration"`
}

type EscalationDef struct {
	Transition string `yaml:"transition"`
	Priority   int    `yaml:"priority"`
	Enabled    *bool  `yaml:"enabled"`
	Unit       string `yaml:"unit"`
	Amount     int    `yaml:"amount"`
	Condition  string `yaml:"condition"`
	Comment    string `yaml:"comment"`
}

type TransitionDef struct {
	Label     string     `yaml:"label"`
	From      string     `yaml:"from"`
	To        string     `yaml:"to"`
	Condition string     `yaml:"condition"`
	Triggers  []string   `yaml:"triggers"`
	Fields    []FieldDef `yaml:"fields"`
}

type FieldDef struct {
	Name     string `yaml:"name"`
	Label    string `yaml:"label"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required"`
}

type Loader struct {
	templates repos.WorkflowTemplateRepo
	documents repos.DocumentRepo
	registry  *actions.Registry
}

func NewLoader(templates repos.WorkflowTemplateRepo, documents repos.DocumentRepo, registry *actions.Registry) *Loader {
	return &Loader{templates: templates, documents: documents, registry: registry}
}

// Parse decodes and validates a YAML template definition.
func (l *Loader) Parse(raw []byte) (*TemplateDef, error) {
	var def TemplateDef
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("template definition decode: %w", err)
	}
	if err := l.Validate(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate enforces the structural invariants of a template definition.
func (l *Loader) Validate(def *TemplateDef) error {
	if def.InternalName == "" {
		return fmt.Errorf("template definition: missing internal_name")
	}
	if len(def.States) == 0 {
		return fmt.Errorf("template %q: no states", def.InternalName)
	}

	stateLabels := make(map[string]bool, len(def.States))
	initialCount := 0
	for _, s := range def.States {
		if s.Label == "" {
			return fmt.Errorf("template %q: state with empty label", def.InternalName)
		}
		if stateLabels[s.Label] {
			return fmt.Errorf("template %q: duplicate state %q", def.InternalName, s.Label)
		}
		stateLabels[s.Label] = true
		if s.Initial {
			initialCount++
		}
		if s.Completion < 0 || s.Completion > 100 {
			return fmt.Errorf("template %q: state %q completion out of range", def.InternalName, s.Label)
		}
	}
	if initialCount != 1 {
		return fmt.Errorf("template %q: want exactly 1 initial state, got %d", def.InternalName, initialCount)
	}

	transitionLabels := make(map[string]bool, len(def.Transitions))
	for _, t := range def.Transitions {
		if t.Label == "" {
			return fmt.Errorf("template %q: transition with empty label", def.InternalName)
		}
		if transitionLabels[t.Label] {
			return fmt.Errorf("template %q: duplicate transition %q", def.InternalName, t.Label)
		}
		transitionLabels[t.Label] = true
		if !stateLabels[t.From] {
			return fmt.Errorf("template %q: transition %q references unknown origin state %q", def.InternalName, t.Label, t.From)
		}
		if !stateLabels[t.To] {
			return fmt.Errorf("template %q: transition %q references unknown destination state %q", def.InternalName, t.Label, t.To)
		}
	}

	for _, s := range def.States {
		for _, a := range s.Actions {
			if a.When != types.WhenOnEntry && a.When != types.WhenOnExit {
				return fmt.Errorf("template %q: action %q has invalid phase %q", def.InternalName, a.Label, a.When)
			}
			if l.registry != nil {
				if _, ok := l.registry.Get(a.ActionType); !ok {
					return fmt.Errorf("template %q: action %q uses unknown action_type %q", def.InternalName, a.Label, a.ActionType)
				}
			}
		}
		for _, e := range s.Escalations {
			if !transitionLabels[e.Transition] {
				return fmt.Errorf("template %q: escalation on state %q references unknown transition %q", def.InternalName, s.Label, e.Transition)
			}
			switch e.Unit {
			case types.EscalationUnitMinutes, types.EscalationUnitHours, types.EscalationUnitDays:
			default:
				return fmt.Errorf("template %q: escalation on state %q has invalid unit %q", def.InternalName, s.Label, e.Unit)
			}
			if e.Amount <= 0 {
				return fmt.Errorf("template %q: escalation on state %q has non-positive amount", def.InternalName, s.Label)
			}
		}
	}
	return nil
}

// Save persists a validated definition as a new workflow template.
func (l *Loader) Save(ctx context.Context, def *TemplateDef) (*types.WorkflowTemplate, error) {
	tpl := &types.WorkflowTemplate{
		ID:           uuid.New(),
		InternalName: def.InternalName,
		Label:        def.Label,
		AutoLaunch:   def.AutoLaunch,
	}
	for _, typeLabel := range def.DocumentTypes {
		dt, err := l.documents.GetTypeByLabel(ctx, nil, typeLabel)
		if err != nil {
			return nil, fmt.Errorf("template %q: document type %q: %w", def.InternalName, typeLabel, err)
		}
		tpl.DocumentTypes = append(tpl.DocumentTypes, dt)
	}

	stateIDs := make(map[string]uuid.UUID, len(def.States))
	for _, s := range def.States {
		stateIDs[s.Label] = uuid.New()
	}
	transitionIDs := make(map[string]uuid.UUID, len(def.Transitions))
	for _, t := range def.Transitions {
		transitionIDs[t.Label] = uuid.New()
	}

	for _, sd := range def.States {
		state := &types.WorkflowState{
			ID:         stateIDs[sd.Label],
			TemplateID: tpl.ID,
			Label:      sd.Label,
			Initial:    sd.Initial,
			Completion: sd.Completion,
		}
		for i, ad := range sd.Actions {
			enabled := true
			if ad.Enabled != nil {
				enabled = *ad.Enabled
			}
			var config datatypes.JSON
			if len(ad.Configuration) > 0 {
				raw, err := json.Marshal(ad.Configuration)
				if err != nil {
					return nil, fmt.Errorf("template %q: action %q configuration: %w", def.InternalName, ad.Label, err)
				}
				config = raw
			}
			state.Actions = append(state.Actions, &types.StateAction{
				ID:            uuid.New(),
				StateID:       state.ID,
				Label:         ad.Label,
				Enabled:       enabled,
				When:          ad.When,
				ActionType:    ad.ActionType,
				Configuration: config,
				Condition:     ad.Condition,
				Ordering:      i,
			})
		}
		for _, ed := range sd.Escalations {
			enabled := true
			if ed.Enabled != nil {
				enabled = *ed.Enabled
			}
			state.Escalations = append(state.Escalations, &types.StateEscalation{
				ID:           uuid.New(),
				StateID:      state.ID,
				TransitionID: transitionIDs[ed.Transition],
				Priority:     ed.Priority,
				Enabled:      enabled,
				Unit:         ed.Unit,
				Amount:       ed.Amount,
				Condition:    ed.Condition,
				Comment:      ed.Comment,
			})
		}
		tpl.States = append(tpl.States, state)
	}

	for i, td := range def.Transitions {
		transition := &types.WorkflowTransition{
			ID:                 transitionIDs[td.Label],
			TemplateID:         tpl.ID,
			Label:              td.Label,
			OriginStateID:      stateIDs[td.From],
			DestinationStateID: stateIDs[td.To],
			Condition:          td.Condition,
			Ordering:           i,
		}
		for _, ev := range td.Triggers {
			transition.Triggers = append(transition.Triggers, &types.TransitionTrigger{
				ID:           uuid.New(),
				TransitionID: transition.ID,
				EventType:    ev,
			})
		}
		for j, fd := range td.Fields {
			fieldType := fd.FieldTypeOrDefault()
			transition.Fields = append(transition.Fields, &types.TransitionField{
				ID:           uuid.New(),
				TransitionID: transition.ID,
				Name:         fd.Name,
				Label:        fd.Label,
				FieldType:    fieldType,
				Required:     fd.Required,
				Ordering:     j,
			})
		}
		tpl.Transitions = append(tpl.Transitions, transition)
	}

	return l.templates.Create(ctx, nil, tpl)
}

func (f FieldDef) FieldTypeOrDefault() string {
	switch f.Type {
	case types.FieldTypeInteger, types.FieldTypeBoolean:
		return f.Type
	default:
		return types.FieldTypeChar
	}
}
