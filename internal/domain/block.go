package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BlockCategory tags a template for library browsing.
type BlockCategory string

const (
	BlockWarmup    BlockCategory = "warmup"
	BlockMain      BlockCategory = "main"
	BlockAccessory BlockCategory = "accessory"
	BlockCooldown  BlockCategory = "cooldown"
	BlockCustom    BlockCategory = "custom"
)

// BlockTemplate is a named, reusable bundle of exercises and groups,
// independent of any plan. Templates mutate only through explicit
// authoring edits; inserting one into a plan clones its content.
type BlockTemplate struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CoachID  primitive.ObjectID `bson:"coachId" json:"coachId"`
	Name     string             `bson:"name" json:"name"`
	Category BlockCategory      `bson:"category" json:"category"`

	Exercises []Exercise      `bson:"exercises" json:"exercises"`
	Groups    []ExerciseGroup `bson:"groups" json:"groups"`

	UsageCount int        `bson:"usageCount" json:"usageCount"`
	LastUsed   *time.Time `bson:"lastUsed,omitempty" json:"lastUsed,omitempty"`
	Favorite   bool       `bson:"favorite" json:"favorite"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Customizations records how a block instance has diverged from its
// source template, as six id lists. Modified/removed hold template-side
// ids; added holds instance-side ids (there is no template counterpart
// to name).
type Customizations struct {
	ModifiedExercises []string `bson:"modifiedExercises" json:"modifiedExercises"`
	AddedExercises    []string `bson:"addedExercises" json:"addedExercises"`
	RemovedExercises  []string `bson:"removedExercises" json:"removedExercises"`
	ModifiedGroups    []string `bson:"modifiedGroups" json:"modifiedGroups"`
	AddedGroups       []string `bson:"addedGroups" json:"addedGroups"`
	RemovedGroups     []string `bson:"removedGroups" json:"removedGroups"`
}

// IsEmpty reports whether the instance still matches its template.
func (c Customizations) IsEmpty() bool {
	return len(c.ModifiedExercises) == 0 && len(c.AddedExercises) == 0 &&
		len(c.RemovedExercises) == 0 && len(c.ModifiedGroups) == 0 &&
		len(c.AddedGroups) == 0 && len(c.RemovedGroups) == 0
}

// BlockInstance is one placement of a BlockTemplate inside one Plan.
// It owns no exercise objects; its content is whatever exercises/groups
// in the plan carry its id as BlockInstanceID. SourceBlockName is a
// snapshot so the instance stays displayable after the template is
// renamed or deleted.
type BlockInstance struct {
	ID              string             `bson:"id" json:"id"`
	SourceBlockID   primitive.ObjectID `bson:"sourceBlockId" json:"sourceBlockId"`
	SourceBlockName string             `bson:"sourceBlockName" json:"sourceBlockName"`
	InstanceName    string             `bson:"instanceName,omitempty" json:"instanceName,omitempty"`
	Notes           string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Order           int                `bson:"order" json:"order"`
	Customizations  Customizations     `bson:"customizations" json:"customizations"`
}

// DisplayName is the instance override when present, else the snapshot
// of the template name.
func (b BlockInstance) DisplayName() string {
	if b.InstanceName != "" {
		return b.InstanceName
	}
	return b.SourceBlockName
}

// InsertBlockInstance clones a template into the plan as a new block
// instance. Clones receive fresh ids (two instances of one template in
// the same plan must not collide) and remember their template original
// through SourceID, which is what the customization diff keys on.
// Group back-references are remapped to the cloned group ids. Cloned
// exercises are ordered after everything already in the plan.
func (p *Plan) InsertBlockInstance(t *BlockTemplate) (*BlockInstance, error) {
	if len(t.Exercises) == 0 {
		return nil, fmt.Errorf("%w: block %q has no exercises", ErrPlanValidation, t.Name)
	}
	inst := BlockInstance{
		ID:              uuid.NewString(),
		SourceBlockID:   t.ID,
		SourceBlockName: t.Name,
		Order:           p.nextInstanceOrder(),
	}
	p.BlockInstances = append(p.BlockInstances, inst)
	p.cloneTemplateContent(t, inst.ID)
	return &p.BlockInstances[len(p.BlockInstances)-1], nil
}

// cloneTemplateContent copies a template's groups and exercises into
// the plan under the given instance id.
func (p *Plan) cloneTemplateContent(t *BlockTemplate, instanceID string) {
	groupIDs := make(map[string]string, len(t.Groups)) // template id -> clone id
	for _, tg := range t.Groups {
		g := tg
		src := tg.ID
		g.ID = uuid.NewString()
		g.SourceID = &src
		g.BlockInstanceID = &instanceID
		g.Order = p.nextGroupOrder()
		groupIDs[src] = g.ID
		p.Groups = append(p.Groups, g)
	}
	base := p.MaxExerciseOrder()
	for n, te := range t.Exercises {
		e := te
		src := te.ID
		e.ID = uuid.NewString()
		e.SourceID = &src
		e.BlockInstanceID = &instanceID
		e.Order = base + n + 1
		if te.GroupID != nil {
			if mapped, ok := groupIDs[*te.GroupID]; ok {
				e.GroupID = &mapped
			} else {
				e.GroupID = nil
			}
		}
		p.Exercises = append(p.Exercises, e)
	}
	// Compact every scope the clones created.
	seen := map[scopeKey]bool{}
	for i := range p.Exercises {
		if p.Exercises[i].BlockInstanceID != nil && *p.Exercises[i].BlockInstanceID == instanceID {
			k := exerciseScope(p.Exercises[i])
			if !seen[k] {
				seen[k] = true
				p.renumberScope(k)
			}
		}
	}
}

// InstanceExercises returns the exercises owned by a block instance.
func (p *Plan) InstanceExercises(instanceID string) []Exercise {
	var out []Exercise
	for i := range p.Exercises {
		if p.Exercises[i].BlockInstanceID != nil && *p.Exercises[i].BlockInstanceID == instanceID {
			out = append(out, p.Exercises[i])
		}
	}
	return out
}

// InstanceGroups returns the groups owned by a block instance.
func (p *Plan) InstanceGroups(instanceID string) []ExerciseGroup {
	var out []ExerciseGroup
	for i := range p.Groups {
		if p.Groups[i].BlockInstanceID != nil && *p.Groups[i].BlockInstanceID == instanceID {
			out = append(out, p.Groups[i])
		}
	}
	return out
}

// ComputeCustomizations diffs a block instance's current content
// against its source template. The comparison is structural, field by
// field, so serialization artifacts can never register as changes.
//
//   - modified: template rows whose clone still exists but prescribes
//     something different
//   - removed: template rows with no surviving clone
//   - added: instance rows with no template origin (or whose origin
//     vanished from the template since)
//
// Computed independently for exercises and groups; the result is what
// gets stamped on the instance at save time.
func ComputeCustomizations(p *Plan, instanceID string, t *BlockTemplate) (Customizations, error) {
	if p.findInstance(instanceID) < 0 {
		return Customizations{}, ErrInstanceNotFound
	}
	c := Customizations{
		ModifiedExercises: []string{},
		AddedExercises:    []string{},
		RemovedExercises:  []string{},
		ModifiedGroups:    []string{},
		AddedGroups:       []string{},
		RemovedGroups:     []string{},
	}

	tplEx := make(map[string]Exercise, len(t.Exercises))
	for _, e := range t.Exercises {
		tplEx[e.ID] = e
	}
	seenEx := map[string]bool{}
	for _, e := range p.InstanceExercises(instanceID) {
		if e.SourceID == nil {
			c.AddedExercises = append(c.AddedExercises, e.ID)
			continue
		}
		orig, ok := tplEx[*e.SourceID]
		if !ok {
			c.AddedExercises = append(c.AddedExercises, e.ID)
			continue
		}
		seenEx[*e.SourceID] = true
		if !e.PrescriptionEquals(orig) {
			c.ModifiedExercises = append(c.ModifiedExercises, *e.SourceID)
		}
	}
	for _, e := range t.Exercises {
		if !seenEx[e.ID] {
			c.RemovedExercises = append(c.RemovedExercises, e.ID)
		}
	}

	tplGr := make(map[string]ExerciseGroup, len(t.Groups))
	for _, g := range t.Groups {
		tplGr[g.ID] = g
	}
	seenGr := map[string]bool{}
	for _, g := range p.InstanceGroups(instanceID) {
		if g.SourceID == nil {
			c.AddedGroups = append(c.AddedGroups, g.ID)
			continue
		}
		orig, ok := tplGr[*g.SourceID]
		if !ok {
			c.AddedGroups = append(c.AddedGroups, g.ID)
			continue
		}
		seenGr[*g.SourceID] = true
		if !g.SettingsEqual(orig) {
			c.ModifiedGroups = append(c.ModifiedGroups, *g.SourceID)
		}
	}
	for _, g := range t.Groups {
		if !seenGr[g.ID] {
			c.RemovedGroups = append(c.RemovedGroups, g.ID)
		}
	}
	return c, nil
}

// ResetInstanceToTemplate throws away an instance's content and clones
// the template fresh: new identities, orders continuing after the
// plan's current maximum so nothing collides, customizations and notes
// cleared. Destructive and not reversible; callers confirm with the
// user first.
func (p *Plan) ResetInstanceToTemplate(instanceID string, t *BlockTemplate) error {
	ii := p.findInstance(instanceID)
	if ii < 0 {
		return ErrInstanceNotFound
	}
	kept := p.Exercises[:0]
	for _, e := range p.Exercises {
		if e.BlockInstanceID == nil || *e.BlockInstanceID != instanceID {
			kept = append(kept, e)
		}
	}
	p.Exercises = kept
	keptG := p.Groups[:0]
	for _, g := range p.Groups {
		if g.BlockInstanceID == nil || *g.BlockInstanceID != instanceID {
			keptG = append(keptG, g)
		}
	}
	p.Groups = keptG

	p.cloneTemplateContent(t, instanceID)
	p.BlockInstances[ii].Customizations = Customizations{}
	p.BlockInstances[ii].Notes = ""
	p.BlockInstances[ii].SourceBlockName = t.Name
	return nil
}

func (p *Plan) nextInstanceOrder() int {
	max := 0
	for i := range p.BlockInstances {
		if p.BlockInstances[i].Order > max {
			max = p.BlockInstances[i].Order
		}
	}
	return max + 1
}

// DurationEstimator derives minutes of training from a set of
// exercises. It is a named, swappable function because the default is a
// product decision, not a law of nature.
type DurationEstimator func(exercises []Exercise) int

// EstimateDuration is the stock heuristic: 3 seconds per rep plus the
// prescribed rest after every set, summed and rounded down to minutes.
// Coarse on purpose; it exists to give coaches a ballpark, and must not
// be treated as authoritative.
var EstimateDuration DurationEstimator = func(exercises []Exercise) int {
	seconds := 0
	for _, e := range exercises {
		seconds += e.Sets*e.Reps*3 + e.RestSeconds*e.Sets
	}
	return seconds / 60
}
