package convert

import (
	"bufio"
	"io"
	"os"
)

func openUpload(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fsErr("open upload", err)
	}
	return f, nil
}

func readUpload(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fsErr("read upload", err)
	}
	return data, nil
}

// writeFile creates path and streams write into it through a buffer.
// Errors from write that are already classified pass through untouched.
func writeFile(path, op string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fsErr(op, err)
	}
	bw := bufio.NewWriter(f)
	err = write(bw)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		if _, ok := AsError(err); ok {
			return err
		}
		return fsErr(op, err)
	}
	return nil
}
