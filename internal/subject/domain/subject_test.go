package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubject_HasPermission(t *testing.T) {
	subject := &Subject{
		Permissions: []string{"view content", "edit content"},
	}

	assert.True(t, subject.HasPermission("view content"))
	assert.True(t, subject.HasPermission("edit content"))
	assert.False(t, subject.HasPermission("delete content"))
	assert.False(t, (&Subject{}).HasPermission("view content"))
}

func TestSubject_HasRole(t *testing.T) {
	subject := &Subject{
		Roles: []string{"editor"},
	}

	assert.True(t, subject.HasRole("editor"))
	assert.False(t, subject.HasRole("admin"))
	assert.False(t, (&Subject{}).HasRole("editor"))
}
