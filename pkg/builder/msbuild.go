package builder

// MSBuild builds Visual Studio solutions.
type MSBuild struct {
	toolchain
}

// NewMSBuild returns the msbuild backend.
func NewMSBuild(opts Options) Backend {
	return &MSBuild{toolchain{name: "MSBuild", exe: "msbuild", opts: opts.withDefaults()}}
}

// DefaultCommand returns the conventional build command for a solution file.
func (b *MSBuild) DefaultCommand(solution string) []string {
	cmd := []string{b.exe, solution, "/p:Configuration=" + b.opts.Configuration}
	if b.opts.Platform != "" {
		cmd = append(cmd, "/p:Platform="+b.opts.Platform)
	}
	return cmd
}
