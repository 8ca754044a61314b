// Package model defines the typed records stored in the document store.
//
// Documents come back from the store as schemaless maps. Each record type
// here has a FromDoc parser that validates the shape once, at the store
// boundary, and a Doc serializer for writes. Anything downstream of the
// repository layer only ever sees these structs.
package model

import (
	"time"

	"github.com/snipmart/snipmart/internal/apperror"
)

// Product is a purchasable unit of code-snippet content.
//
// Price is an integer amount in minor currency units (cents). A price of
// zero marks a free product, which is viewable without a purchase.
type Product struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	ImageURL     string        `json:"imageUrl,omitempty"`
	Price        int64         `json:"price"`
	OwnerID      string        `json:"ownerId,omitempty"`
	InstallSteps []string      `json:"installSteps,omitempty"`
	Files        []ProductFile `json:"files,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// ProductFile is one entry of a product's protected file listing.
type ProductFile struct {
	Path     string `json:"path"`
	Language string `json:"language,omitempty"`
	Code     string `json:"code"`
}

// Free reports whether the product requires no purchase to view.
func (p *Product) Free() bool {
	return p.Price == 0
}

// ProductFromDoc parses a stored document into a Product.
//
// Title and a non-negative integer price are the minimum viable shape;
// anything else is rejected with an integrity error rather than trusted.
func ProductFromDoc(id string, fields map[string]any) (*Product, error) {
	if id == "" {
		return nil, apperror.Integrity("product document has no id")
	}

	title, ok := docString(fields, "title")
	if !ok || title == "" {
		return nil, apperror.Integrity("product " + id + " has no title")
	}

	price, ok := docInt(fields, "price")
	if !ok || price < 0 {
		return nil, apperror.Integrity("product " + id + " has a missing or negative price")
	}

	p := &Product{
		ID:    id,
		Title: title,
		Price: price,
	}
	p.Description, _ = docString(fields, "description")
	p.ImageURL, _ = docString(fields, "imageUrl")
	p.OwnerID, _ = docString(fields, "ownerId")
	p.CreatedAt = docTime(fields, "createdAt")
	p.UpdatedAt = docTime(fields, "updatedAt")
	p.InstallSteps = docStringSlice(fields, "installSteps")

	if raw, ok := fields["files"].([]any); ok {
		for _, entry := range raw {
			m, ok := entry.(map[string]any)
			if !ok {
				return nil, apperror.Integrity("product " + id + " has a malformed file entry")
			}
			var f ProductFile
			f.Path, _ = docString(m, "path")
			f.Language, _ = docString(m, "language")
			f.Code, _ = docString(m, "code")
			if f.Path == "" {
				return nil, apperror.Integrity("product " + id + " has a file entry with no path")
			}
			p.Files = append(p.Files, f)
		}
	}

	return p, nil
}

// Doc serializes the product into document fields. The ID is the document
// key and is not duplicated inside the fields.
func (p *Product) Doc() map[string]any {
	files := make([]any, 0, len(p.Files))
	for _, f := range p.Files {
		files = append(files, map[string]any{
			"path":     f.Path,
			"language": f.Language,
			"code":     f.Code,
		})
	}

	steps := make([]any, 0, len(p.InstallSteps))
	for _, s := range p.InstallSteps {
		steps = append(steps, s)
	}

	return map[string]any{
		"title":        p.Title,
		"description":  p.Description,
		"imageUrl":     p.ImageURL,
		"price":        p.Price,
		"ownerId":      p.OwnerID,
		"installSteps": steps,
		"files":        files,
	}
}
