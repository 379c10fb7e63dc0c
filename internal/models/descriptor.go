package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

/**
 * Version descriptor as published for one game version (or a loader profile
 * that inherits from one).
 * @property {string} id - Version identifier
 * @property {string} inheritsFrom - Optional parent version identifier
 * @property {string} mainClass - Entry point class
 * @property {string} minecraftArguments - Legacy whitespace separated game arguments
 * @property {Arguments} arguments - Conditional JVM and game arguments
 * @property {[]Library} libraries - Ordered library entries
 * @property {AssetIndexRef} assetIndex - Reference to the asset index document
 * @property {VersionDownloads} downloads - Client jar download reference
 */
type VersionDescriptor struct {
	ID                 string            `json:"id"`
	InheritsFrom       string            `json:"inheritsFrom,omitempty"`
	Type               string            `json:"type,omitempty"`
	MainClass          string            `json:"mainClass,omitempty"`
	MinecraftArguments string            `json:"minecraftArguments,omitempty"`
	Arguments          *Arguments        `json:"arguments,omitempty"`
	Libraries          []Library         `json:"libraries,omitempty"`
	AssetIndex         *AssetIndexRef    `json:"assetIndex,omitempty"`
	Assets             string            `json:"assets,omitempty"`
	Downloads          *VersionDownloads `json:"downloads,omitempty"`
	JavaVersion        *JavaVersion      `json:"javaVersion,omitempty"`
}

type Arguments struct {
	Game []Argument `json:"game,omitempty"`
	JVM  []Argument `json:"jvm,omitempty"`
}

type AssetIndexRef struct {
	ID        string `json:"id"`
	SHA1      string `json:"sha1"`
	Size      int64  `json:"size"`
	TotalSize int64  `json:"totalSize,omitempty"`
	URL       string `json:"url"`
}

type VersionDownloads struct {
	Client *Artifact `json:"client,omitempty"`
}

type JavaVersion struct {
	Component    string `json:"component"`
	MajorVersion int    `json:"majorVersion"`
}

// Artifact is one downloadable file with its expected checksum and size.
type Artifact struct {
	Path string `json:"path,omitempty"`
	URL  string `json:"url"`
	SHA1 string `json:"sha1,omitempty"`
	Size int64  `json:"size,omitempty"`
}

type LibraryDownloads struct {
	Artifact    *Artifact           `json:"artifact,omitempty"`
	Classifiers map[string]Artifact `json:"classifiers,omitempty"`
}

type ExtractRules struct {
	Exclude []string `json:"exclude,omitempty"`
}

/**
 * Library entry
 * @property {string} name - Maven coordinate group:artifact:version[:classifier][@ext]
 * @property {LibraryDownloads} downloads - Primary artifact and native classifiers
 * @property {map[string]string} natives - OS name to classifier, may contain ${arch}
 * @property {string} url - Maven repository base used when downloads is absent
 */
type Library struct {
	Name      string            `json:"name"`
	Downloads *LibraryDownloads `json:"downloads,omitempty"`
	Natives   map[string]string `json:"natives,omitempty"`
	Extract   *ExtractRules     `json:"extract,omitempty"`
	Rules     []Rule            `json:"rules,omitempty"`
	URL       string            `json:"url,omitempty"`
}

// Coordinate is a parsed maven coordinate.
type Coordinate struct {
	Group      string
	Artifact   string
	Version    string
	Classifier string
	Extension  string
}

// ParseCoordinate splits group:artifact:version[:classifier][@ext].
func ParseCoordinate(name string) (Coordinate, error) {
	c := Coordinate{Extension: "jar"}
	if at := strings.LastIndex(name, "@"); at >= 0 {
		c.Extension = name[at+1:]
		name = name[:at]
	}
	parts := strings.Split(name, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return c, fmt.Errorf("invalid maven coordinate %q", name)
	}
	c.Group, c.Artifact, c.Version = parts[0], parts[1], parts[2]
	if len(parts) == 4 {
		c.Classifier = parts[3]
	}
	if c.Group == "" || c.Artifact == "" || c.Version == "" {
		return c, fmt.Errorf("invalid maven coordinate %q", name)
	}
	return c, nil
}

// Path returns the repository relative path of the coordinate, using classifier
// instead of the coordinate's own when non-empty.
func (c Coordinate) Path(classifier string) string {
	if classifier == "" {
		classifier = c.Classifier
	}
	file := c.Artifact + "-" + c.Version
	if classifier != "" {
		file += "-" + classifier
	}
	file += "." + c.Extension
	return strings.Join([]string{strings.ReplaceAll(c.Group, ".", "/"), c.Artifact, c.Version, file}, "/")
}

// Identity is the override key of a library: the coordinate without its version.
// A child declaring the same group, artifact and classifier replaces the parent's entry.
func (l *Library) Identity() string {
	c, err := ParseCoordinate(l.Name)
	if err != nil {
		return l.Name
	}
	id := c.Group + ":" + c.Artifact
	if c.Classifier != "" {
		id += ":" + c.Classifier
	}
	if c.Extension != "jar" {
		id += "@" + c.Extension
	}
	return id
}

// Argument is one conditional argument. Value holds one or more tokens which may
// contain ${placeholder} references.
type Argument struct {
	Value []string `json:"value"`
	Rules []Rule   `json:"rules,omitempty"`
}

// UnmarshalJSON accepts a bare string or a {rules, value} object whose value is a
// string or a string array.
func (a *Argument) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = Argument{Value: []string{s}}
		return nil
	}
	var obj struct {
		Rules []Rule          `json:"rules"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	a.Rules = obj.Rules
	a.Value = nil
	if len(obj.Value) == 0 {
		return fmt.Errorf("argument without value")
	}
	if err := json.Unmarshal(obj.Value, &s); err == nil {
		a.Value = []string{s}
		return nil
	}
	return json.Unmarshal(obj.Value, &a.Value)
}

// MarshalJSON writes plain arguments back as strings.
func (a Argument) MarshalJSON() ([]byte, error) {
	if len(a.Rules) == 0 && len(a.Value) == 1 {
		return json.Marshal(a.Value[0])
	}
	type plain Argument
	return json.Marshal(plain(a))
}

// GameArguments returns the structured game arguments, falling back to the legacy
// minecraftArguments string when the descriptor has none.
func (d *VersionDescriptor) GameArguments() []Argument {
	if d.Arguments != nil && len(d.Arguments.Game) > 0 {
		return d.Arguments.Game
	}
	if d.MinecraftArguments == "" {
		return nil
	}
	fields := strings.Fields(d.MinecraftArguments)
	args := make([]Argument, 0, len(fields))
	for _, f := range fields {
		args = append(args, Argument{Value: []string{f}})
	}
	return args
}

// JVMArguments returns the descriptor's JVM arguments; nil for legacy descriptors.
func (d *VersionDescriptor) JVMArguments() []Argument {
	if d.Arguments == nil {
		return nil
	}
	return d.Arguments.JVM
}

// AssetIndexID returns the asset index identifier, honouring the legacy "assets" field.
func (d *VersionDescriptor) AssetIndexID() string {
	if d.AssetIndex != nil && d.AssetIndex.ID != "" {
		return d.AssetIndex.ID
	}
	if d.Assets != "" {
		return d.Assets
	}
	return "legacy"
}
