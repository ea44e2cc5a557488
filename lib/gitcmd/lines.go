package gitcmd

import (
	"bufio"
	"io"
	"strings"
)

func forEachLine(r io.Reader, f func(line string) error) error {
	reader := bufio.NewReader(r)

	for {
		line, err := reader.ReadString('\n')

		if len(line) > 0 {
			ferr := f(strings.TrimSuffix(line, "\n"))
			if ferr != nil {
				return ferr
			}
		}

		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}
	}
}

// WriteLines writes one value per line.
func WriteLines[T ~string](values []T) InputHandler {
	return func(w io.Writer) error {
		bw := bufio.NewWriter(w)

		for _, v := range values {
			_, err := bw.WriteString(string(v))
			if err != nil {
				return err
			}

			err = bw.WriteByte('\n')
			if err != nil {
				return err
			}
		}

		return bw.Flush()
	}
}
