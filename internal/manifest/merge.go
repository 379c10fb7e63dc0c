package manifest

import (
	"encoding/json"

	"craft-keeper/internal/models"
)

/**
 * Merge a child descriptor onto its already resolved parent
 * @param {*VersionDescriptor} parent - Resolved parent, nil for a root
 * @param {*VersionDescriptor} child - Descriptor declaring inheritsFrom
 * @returns {*VersionDescriptor} A new descriptor, neither input is modified
 * @description
 * - Scalars: child's value when set, else parent's
 * - Libraries: parent list followed by child list; a later entry with the same
 *   override key replaces the earlier one; a child entry replaces every parent
 *   entry with the same identity, rule variants included
 * - Arguments: parent followed by child, arguments have no identity
 * - The result inherits whatever the parent inherited
 */
func Merge(parent, child *models.VersionDescriptor) *models.VersionDescriptor {
	if parent == nil {
		return child
	}
	out := *child
	out.InheritsFrom = parent.InheritsFrom
	if out.Type == "" {
		out.Type = parent.Type
	}
	if out.MainClass == "" {
		out.MainClass = parent.MainClass
	}
	if out.MinecraftArguments == "" {
		out.MinecraftArguments = parent.MinecraftArguments
	}
	if out.Assets == "" {
		out.Assets = parent.Assets
	}
	if out.AssetIndex == nil {
		out.AssetIndex = parent.AssetIndex
	}
	if out.Downloads == nil || out.Downloads.Client == nil {
		out.Downloads = parent.Downloads
	}
	if out.JavaVersion == nil {
		out.JavaVersion = parent.JavaVersion
	}
	out.Arguments = mergeArguments(parent.Arguments, child.Arguments)
	out.Libraries = mergeLibraries(parent.Libraries, child.Libraries)
	return &out
}

func mergeArguments(parent, child *models.Arguments) *models.Arguments {
	if parent == nil && child == nil {
		return nil
	}
	out := &models.Arguments{}
	for _, a := range []*models.Arguments{parent, child} {
		if a == nil {
			continue
		}
		out.Game = append(out.Game, a.Game...)
		out.JVM = append(out.JVM, a.JVM...)
	}
	return out
}

func mergeLibraries(parent, child []models.Library) []models.Library {
	parent, child = dedupeLibraries(parent), dedupeLibraries(child)

	// 子级声明的坐标覆盖父级的所有同名条目，不论规则如何
	overridden := make(map[string]bool, len(child))
	for i := range child {
		overridden[child[i].Identity()] = true
	}
	out := make([]models.Library, 0, len(parent)+len(child))
	for i := range parent {
		if !overridden[parent[i].Identity()] {
			out = append(out, parent[i])
		}
	}
	out = append(out, child...)
	if len(out) == 0 {
		return nil
	}
	return out
}

// dedupeLibraries keeps the last entry per override key within one descriptor.
func dedupeLibraries(libs []models.Library) []models.Library {
	last := make(map[string]int, len(libs))
	for i := range libs {
		last[overrideKey(&libs[i])] = i
	}
	out := make([]models.Library, 0, len(last))
	for i := range libs {
		if last[overrideKey(&libs[i])] == i {
			out = append(out, libs[i])
		}
	}
	return out
}

// overrideKey is the library identity, qualified by its rules when it has any.
// Old descriptors list one coordinate twice with disjoint OS rules; both must survive.
func overrideKey(l *models.Library) string {
	id := l.Identity()
	if len(l.Rules) == 0 {
		return id
	}
	raw, err := json.Marshal(l.Rules)
	if err != nil {
		return id
	}
	return id + "|" + string(raw)
}
