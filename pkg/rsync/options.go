package rsync

type options struct {
	quiet                       bool
	delete                      bool
	resolveSymlinks             bool
	progress                    bool
	copyContents                bool
	createMissingPathComponents bool
	excludes                    []string
	infos                       []string
}

// Option is a functor to tune one sync invocation
type Option func(*options)

func evalOptions(opts []Option) options {
	var o options
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

// Quiet suppresses non-error output
func Quiet() Option {
	return func(o *options) { o.quiet = true }
}

// Delete removes extraneous files from the destination
func Delete() Option {
	return func(o *options) { o.delete = true }
}

// ResolveSymlinks copies symlink targets instead of the links themselves
func ResolveSymlinks() Option {
	return func(o *options) { o.resolveSymlinks = true }
}

// Progress shows per-file transfer progress
func Progress() Option {
	return func(o *options) { o.progress = true }
}

// CopyContents copies the contents of each source directory rather
// than the directory itself
func CopyContents() Option {
	return func(o *options) { o.copyContents = true }
}

// CreateMissingPathComponents creates missing components of the
// destination path
func CreateMissingPathComponents() Option {
	return func(o *options) { o.createMissingPathComponents = true }
}

// Exclude adds exclude patterns
func Exclude(patterns ...string) Option {
	return func(o *options) { o.excludes = append(o.excludes, patterns...) }
}

// Info adds rsync --info verbosity categories
func Info(categories ...string) Option {
	return func(o *options) { o.infos = append(o.infos, categories...) }
}
