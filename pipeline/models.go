package pipeline

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Metadata keys written by the execution lifecycle.
const (
	MetaProcessUUID = "process_uuid"
	MetaStartedAt   = "started_at"
	MetaCompletedAt = "completed_at"
	MetaError       = "error"
	MetaErrorType   = "error_type"
	MetaSubmitError = "submit_error"
)

// Pipeline is a named, versioned container of nodes.
type Pipeline struct {
	ID        string            `gorm:"column:id;primaryKey" json:"id"`
	Title     string            `gorm:"column:title;not null" json:"title"`
	Version   int               `gorm:"column:version;not null;default:1" json:"version"`
	Config    datatypes.JSONMap `gorm:"column:config" json:"config"`
	Metadata  datatypes.JSONMap `gorm:"column:metadata" json:"metadata"`
	CreatedAt time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

func (Pipeline) TableName() string { return "pipelines" }

// Node is one vertex of a pipeline DAG.
type Node struct {
	ID               string            `gorm:"column:id;primaryKey" json:"id"`
	PipelineID       string            `gorm:"column:pipeline_id;not null;index" json:"pipeline_id"`
	Title            string            `gorm:"column:title" json:"title"`
	Type             string            `gorm:"column:type;not null" json:"type"`
	Status           Status            `gorm:"column:status;not null;default:pending" json:"status"`
	Config           datatypes.JSONMap `gorm:"column:config" json:"config"`
	Inputs           datatypes.JSONMap `gorm:"column:inputs" json:"inputs"`
	Asset            datatypes.JSONMap `gorm:"column:asset" json:"asset,omitempty"`
	Output           datatypes.JSONMap `gorm:"column:output" json:"output,omitempty"`
	Metadata         datatypes.JSONMap `gorm:"column:metadata" json:"metadata"`
	IsValid          bool              `gorm:"column:is_valid;not null" json:"is_valid"`
	ValidationErrors map[string]string `gorm:"column:validation_errors;serializer:json" json:"validation_errors"`
	CreatedAt        time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

func (Node) TableName() string { return "nodes" }

// NewID returns a fresh opaque identifier for pipelines and nodes.
func NewID() string {
	return uuid.NewString()
}

// ProcessUUID returns the token of the node's current execution attempt, or "".
func (n *Node) ProcessUUID() string {
	s, _ := AsString(n.Metadata[MetaProcessUUID])
	return s
}

// EnsureDocuments replaces nil documents with empty maps so they persist as {}.
func (n *Node) EnsureDocuments() {
	if n.Config == nil {
		n.Config = datatypes.JSONMap{}
	}
	if n.Inputs == nil {
		n.Inputs = datatypes.JSONMap{}
	}
	if n.Metadata == nil {
		n.Metadata = datatypes.JSONMap{}
	}
	if n.ValidationErrors == nil {
		n.ValidationErrors = map[string]string{}
	}
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Config = CloneDoc(n.Config)
	c.Inputs = CloneDoc(n.Inputs)
	c.Asset = CloneDoc(n.Asset)
	c.Output = CloneDoc(n.Output)
	c.Metadata = CloneDoc(n.Metadata)
	if n.ValidationErrors != nil {
		c.ValidationErrors = make(map[string]string, len(n.ValidationErrors))
		for k, v := range n.ValidationErrors {
			c.ValidationErrors[k] = v
		}
	}
	return &c
}

// Clone returns a deep copy of the pipeline.
func (p *Pipeline) Clone() *Pipeline {
	if p == nil {
		return nil
	}
	c := *p
	c.Config = CloneDoc(p.Config)
	c.Metadata = CloneDoc(p.Metadata)
	return &c
}
