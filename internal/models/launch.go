package models

/**
 * Fully resolved launch command. Built once per launch and never modified;
 * changed inputs produce a new LaunchSpec.
 * @property {string} javaPath - Runtime executable
 * @property {string} mainClass - Entry point
 * @property {[]string} classpath - Library jars in plan order, client jar last
 * @property {[]string} jvmArgs - Caller baseline followed by descriptor JVM arguments
 * @property {[]string} gameArgs - Resolved game arguments
 * @property {string} workDir - Game directory
 * @property {map[string]string} env - Environment overrides
 */
type LaunchSpec struct {
	VersionID string            `json:"version"`
	JavaPath  string            `json:"javaPath"`
	MainClass string            `json:"mainClass"`
	Classpath []string          `json:"classpath"`
	JVMArgs   []string          `json:"jvmArgs"`
	GameArgs  []string          `json:"gameArgs"`
	WorkDir   string            `json:"workDir"`
	Env       map[string]string `json:"env,omitempty"`
}

// Args returns the full runtime argument vector: JVM args, main class, game args.
func (s *LaunchSpec) Args() []string {
	args := make([]string, 0, len(s.JVMArgs)+1+len(s.GameArgs))
	args = append(args, s.JVMArgs...)
	args = append(args, s.MainClass)
	args = append(args, s.GameArgs...)
	return args
}

// secretFlags take a credential as their next argument.
var secretFlags = map[string]bool{
	"--accessToken": true,
	"--session":     true,
}

// RedactedArgs is Args with credential values masked, for logs and status output.
func (s *LaunchSpec) RedactedArgs() []string {
	args := s.Args()
	for i := 0; i+1 < len(args); i++ {
		if secretFlags[args[i]] {
			args[i+1] = "***"
			i++
		}
	}
	return args
}
