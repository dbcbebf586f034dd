package debpkg

// ConfigError reports a malformed source line or other tolerated input
// parsing failure. Callers treat these as skip, not abort.
type ConfigError struct {
	Line   string
	Reason string
}

func (e *ConfigError) Error() string {
	return "bad source line " + quote(e.Line) + ": " + e.Reason
}

// NetworkError reports exhaustion of the Fetcher's retry budget.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return "fetch " + e.URL + " failed: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// UnknownPackageError reports a name absent from the ProviderMap.
type UnknownPackageError struct {
	Name string
}

func (e *UnknownPackageError) Error() string {
	return "package " + e.Name + " does not exist in repository"
}

// BadArchiveError reports a .deb whose debian-binary member lacks the
// expected version substring, or whose data/control members can't be
// opened under either compression variant.
type BadArchiveError struct {
	Package string
	Reason  string
}

func (e *BadArchiveError) Error() string {
	return "package " + e.Package + " " + e.Reason
}

// CodecError wraps a failure decoding a compressed stream or tar entry.
type CodecError struct {
	Op  string
	Err error
}

func (e *CodecError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// FilesystemError wraps a failure creating a directory or writing a file
// during extraction.
type FilesystemError struct {
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return "filesystem error at " + e.Path + ": " + e.Err.Error()
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

func quote(s string) string {
	return "\"" + s + "\""
}
