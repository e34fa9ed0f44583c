package models

import "time"

// Group scopes access to devices. Devices point at a group by id.
type Group struct {
	ID          string    `bson:"_id" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	ParentID    string    `bson:"parent_id,omitempty" json:"parentId,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
}

// GroupPatch is a partial group update.
type GroupPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	ParentID    *string `json:"parentId,omitempty"`
}

// Apply returns g with the patch applied.
func (p GroupPatch) Apply(g Group) Group {
	if p.Name != nil {
		g.Name = *p.Name
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.ParentID != nil {
		g.ParentID = *p.ParentID
	}
	return g
}
