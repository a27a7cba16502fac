// Package model contains the records shared by the services, the repository
// backends and the worker.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileType is the kind of node a File record represents.
type FileType string

const (
	TypeFolder FileType = "folder"
	TypeFile   FileType = "file"
	TypeImage  FileType = "image"
)

// Valid reports whether t is one of the three known types.
func (t FileType) Valid() bool {
	switch t {
	case TypeFolder, TypeFile, TypeImage:
		return true
	}
	return false
}

// HasContent reports whether records of this type carry a storage path.
func (t FileType) HasContent() bool {
	return t == TypeFile || t == TypeImage
}

// RootValue is how the root parent is persisted by every backend.
const RootValue = "0"

// Parent is either the root of a user's tree or a folder identifier. The zero
// value is Root.
type Parent struct {
	id string
}

// Root is the parent of top level records.
var Root = Parent{}

// Folder returns a parent pointing at the folder with the given identifier.
// An empty id or RootValue yields Root.
func Folder(id string) Parent {
	if id == "" || id == RootValue {
		return Root
	}
	return Parent{id: id}
}

// IsRoot reports whether p is the root sentinel.
func (p Parent) IsRoot() bool { return p.id == "" }

// ID returns the folder identifier, or "" for Root.
func (p Parent) ID() string { return p.id }

// StorageValue is the persisted form: RootValue or the folder identifier.
func (p Parent) StorageValue() string {
	if p.IsRoot() {
		return RootValue
	}
	return p.id
}

func (p Parent) String() string { return p.StorageValue() }

// MarshalJSON renders Root as the number 0 and folders as their identifier.
func (p Parent) MarshalJSON() ([]byte, error) {
	if p.IsRoot() {
		return []byte("0"), nil
	}
	return json.Marshal(p.id)
}

// UnmarshalJSON accepts null, 0, "0", "" (all Root) or any other string or
// number as a folder reference. Syntactic validity is checked by the caller.
func (p *Parent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = Root
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Folder(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("parentId: %w", err)
	}
	if f, err := n.Float64(); err == nil && f == 0 {
		*p = Root
		return nil
	}
	*p = Folder(n.String())
	return nil
}

// User is a registered account. Password holds the encoded digest.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Password string `json:"-"`
}

// File is a node of a user's tree. LocalPath never leaves the server.
type File struct {
	ID        string   `json:"id"`
	UserID    string   `json:"userId"`
	Name      string   `json:"name"`
	Type      FileType `json:"type"`
	IsPublic  bool     `json:"isPublic"`
	Parent    Parent   `json:"parentId"`
	LocalPath string   `json:"-"`
}

// NewID returns a fresh 24 character, time ordered hex identifier.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ValidID reports whether s has the identifier format.
func ValidID(s string) bool {
	return primitive.IsValidObjectID(s)
}

// ParsePage converts the page query parameter, defaulting to 0 for missing,
// malformed or negative values.
func ParsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 0 {
		return 0
	}
	return page
}
