package manifest

import (
	"testing"

	"craft-keeper/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeNilParentIsIdentity(t *testing.T) {
	d := &models.VersionDescriptor{ID: "root", MainClass: "m", Libraries: []models.Library{lib("a:b:1", "x")}}
	assert.Same(t, d, Merge(nil, d))
}

func TestMergeScalars(t *testing.T) {
	parent := &models.VersionDescriptor{
		ID:          "parent",
		Type:        "release",
		MainClass:   "p.Main",
		AssetIndex:  &models.AssetIndexRef{ID: "p"},
		Downloads:   &models.VersionDownloads{Client: &models.Artifact{URL: "client"}},
		JavaVersion: &models.JavaVersion{Component: "java-runtime-gamma", MajorVersion: 17},
	}
	child := &models.VersionDescriptor{ID: "child", InheritsFrom: "parent", MainClass: "c.Main"}

	got := Merge(parent, child)
	assert.Equal(t, "child", got.ID)
	assert.Equal(t, "release", got.Type)
	assert.Equal(t, "c.Main", got.MainClass)
	assert.Equal(t, "p", got.AssetIndex.ID)
	assert.Equal(t, "client", got.Downloads.Client.URL)
	assert.Equal(t, 17, got.JavaVersion.MajorVersion)
	assert.Empty(t, got.InheritsFrom)
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	parent := &models.VersionDescriptor{
		ID:        "p",
		Libraries: []models.Library{lib("g:a:1", "1"), lib("g:b:1", "2")},
		Arguments: &models.Arguments{Game: []models.Argument{{Value: []string{"--p"}}}},
	}
	child := &models.VersionDescriptor{
		ID:           "c",
		InheritsFrom: "p",
		Libraries:    []models.Library{lib("g:a:2", "3")},
		Arguments:    &models.Arguments{Game: []models.Argument{{Value: []string{"--c"}}}},
	}

	got := Merge(parent, child)
	require.Len(t, got.Libraries, 2)
	assert.Equal(t, "g:b:1", got.Libraries[0].Name)
	assert.Equal(t, "g:a:2", got.Libraries[1].Name)
	assert.Len(t, got.Arguments.Game, 2)

	assert.Len(t, parent.Libraries, 2)
	assert.Equal(t, "g:a:1", parent.Libraries[0].Name)
	assert.Len(t, child.Libraries, 1)
	assert.Len(t, parent.Arguments.Game, 1)
	assert.Len(t, child.Arguments.Game, 1)
	assert.Equal(t, "p", child.InheritsFrom)
}

func TestMergeLaterDuplicateWinsWithinLevel(t *testing.T) {
	parent := &models.VersionDescriptor{ID: "p"}
	child := &models.VersionDescriptor{
		ID:        "c",
		Libraries: []models.Library{lib("g:a:1", "1"), lib("g:x:1", "x"), lib("g:a:2", "2")},
	}
	got := Merge(parent, child)
	require.Len(t, got.Libraries, 2)
	assert.Equal(t, "g:x:1", got.Libraries[0].Name)
	assert.Equal(t, "g:a:2", got.Libraries[1].Name)
}

func TestMergeKeepsClassifiersAndRuleVariantsApart(t *testing.T) {
	linuxOnly := lib("org.lwjgl.lwjgl:lwjgl:2.9.4", "l")
	linuxOnly.Rules = []models.Rule{{Action: models.ActionAllow, OS: &models.OSCondition{Name: "linux"}}}
	macOnly := lib("org.lwjgl.lwjgl:lwjgl:2.9.2", "m")
	macOnly.Rules = []models.Rule{{Action: models.ActionAllow, OS: &models.OSCondition{Name: "osx"}}}

	parent := &models.VersionDescriptor{ID: "p", Libraries: []models.Library{
		lib("org.lwjgl:lwjgl:3.3.1", "a"),
		lib("org.lwjgl:lwjgl:3.3.1:natives-linux", "b"),
		linuxOnly,
		macOnly,
	}}
	got := Merge(parent, &models.VersionDescriptor{ID: "c"})
	assert.Len(t, got.Libraries, 4)
}

func TestMergeChildWithRulesReplacesParent(t *testing.T) {
	linuxOnly := lib("com.example:core:1.1", "l")
	linuxOnly.Rules = []models.Rule{{Action: models.ActionAllow, OS: &models.OSCondition{Name: "linux"}}}
	parent := &models.VersionDescriptor{ID: "p", Libraries: []models.Library{
		lib("com.example:core:1.0", "1"),
		linuxOnly,
		lib("com.example:other:1.0", "o"),
	}}
	override := lib("com.example:core:2.0", "2")
	override.Rules = []models.Rule{{Action: models.ActionAllow}}
	child := &models.VersionDescriptor{ID: "c", InheritsFrom: "p", Libraries: []models.Library{override}}

	got := Merge(parent, child)
	require.Len(t, got.Libraries, 2)
	assert.Equal(t, "com.example:other:1.0", got.Libraries[0].Name)
	assert.Equal(t, "com.example:core:2.0", got.Libraries[1].Name)
	assert.Len(t, got.Libraries[1].Rules, 1)
}
