package models

/**
 * Named game instance, stored as <home>/instances/<name>/instance.yaml
 * @property {string} name - Directory name, not stored in the file
 * @property {string} version - Version id launched by this instance
 * @property {WindowConfig} window - Initial window
 * @property {JavaConfig} java - Runtime selection and tuning
 */
type Instance struct {
	Name    string       `json:"name" yaml:"-"`
	Version string       `json:"version" yaml:"version"`
	Window  WindowConfig `json:"window" yaml:"window"`
	Java    JavaConfig   `json:"java" yaml:"java"`
}

type WindowConfig struct {
	StartMaximized bool `json:"startMaximized" yaml:"start_maximized"`
	Width          int  `json:"width,omitempty" yaml:"width,omitempty"`
	Height         int  `json:"height,omitempty" yaml:"height,omitempty"`
}

// JavaConfig memory values use the -Xmx syntax ("512M", "4G").
type JavaConfig struct {
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	MinMemory string `json:"minMemory,omitempty" yaml:"min_memory,omitempty"`
	MaxMemory string `json:"maxMemory,omitempty" yaml:"max_memory,omitempty"`
	Arguments string `json:"arguments,omitempty" yaml:"arguments,omitempty"`
}
