//go:build !realsense

package realsense

// openPipeline returns an error when librealsense2 support is not compiled in.
func openPipeline() (pipeline, error) {
	return nil, errNotCompiled
}
