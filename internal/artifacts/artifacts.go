package artifacts

import _ "embed"

// Global artifacts

//go:embed global/settings.yaml
var GlobalSettings []byte

// Sample archive

//go:embed sample.tar
var SampleArchive []byte
