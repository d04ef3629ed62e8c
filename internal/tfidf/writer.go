package tfidf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Format writes the rows of dw as "<term> <idf> <tf_idf>" lines with six
// decimals.
func Format(w io.Writer, dw DocumentWeights) error {
	bw := bufio.NewWriter(w)
	for _, wt := range dw.Weights {
		if _, err := fmt.Fprintf(bw, "%s %.6f %.6f\n", wt.Term, wt.IDF, wt.TFIDF); err != nil {
			return fmt.Errorf("writing term %q: %w", wt.Term, err)
		}
	}
	return bw.Flush()
}

// WriteDir replaces dir with one vector file per document, named after the
// document. The set is written into a staging directory next to dir and
// swapped in once complete, so files of documents that left the corpus do not
// survive a rebuild.
func WriteDir(dir string, weights []DocumentWeights) error {
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("creating vector directory: %w", err)
	}
	staging, err := os.MkdirTemp(parent, filepath.Base(dir)+".staging-")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	for _, dw := range weights {
		if err := writeFile(filepath.Join(staging, dw.Name), dw); err != nil {
			return err
		}
	}
	if err := os.Chmod(staging, 0755); err != nil {
		return fmt.Errorf("setting staging directory mode: %w", err)
	}
	return swapDir(staging, dir)
}

// swapDir moves staging to dir. A previous dir is renamed aside first and
// restored if the second rename fails.
func swapDir(staging, dir string) error {
	old := dir + ".old"
	if err := os.RemoveAll(old); err != nil {
		return fmt.Errorf("removing stale %s: %w", old, err)
	}
	hadOld := true
	if err := os.Rename(dir, old); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("moving previous vectors aside: %w", err)
		}
		hadOld = false
	}
	if err := os.Rename(staging, dir); err != nil {
		if hadOld {
			os.Rename(old, dir)
		}
		return fmt.Errorf("installing vector directory: %w", err)
	}
	if hadOld {
		if err := os.RemoveAll(old); err != nil {
			return fmt.Errorf("removing previous vectors: %w", err)
		}
	}
	return nil
}

func writeFile(path string, dw DocumentWeights) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating vector file: %w", err)
	}
	defer f.Close()

	if err := Format(f, dw); err != nil {
		return fmt.Errorf("writing %s: %w", dw.Name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing vector file: %w", err)
	}
	return nil
}
