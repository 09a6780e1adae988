package configuration

import (
	"errors"
	"io/fs"
	"os"
)

// backupSuffix is appended to the path of a configuration document to produce
// the path of its backup.
const backupSuffix = ".backup"

// Guard protects a configuration document while it is being replaced.
//
// Unless Commit() is called, Release() restores the document to exactly the
// content it had when Backup() was called.
type Guard struct {
	path     string
	backup   string
	released bool
}

// Backup copies the configuration document at path to a backup file and
// returns a guard that restores it.
//
// The backup survives a crash. RecoverBackup() must be called at startup to
// restore any configuration that was being replaced when the process
// stopped.
func Backup(path string) (*Guard, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	g := &Guard{
		path:   path,
		backup: path + backupSuffix,
	}

	if err := writeFileAtomic(g.backup, data); err != nil {
		return nil, err
	}

	if err := os.Chmod(g.backup, info.Mode().Perm()); err != nil {
		return nil, err
	}

	return g, nil
}

// Commit keeps the current content of the configuration document and
// discards the backup.
func (g *Guard) Commit() error {
	if g.released {
		return nil
	}

	g.released = true

	return os.Remove(g.backup)
}

// Release restores the configuration document from the backup, unless the
// guard has already been committed or released.
func (g *Guard) Release() error {
	if g.released {
		return nil
	}

	g.released = true

	return os.Rename(g.backup, g.path)
}

// RecoverBackup restores the configuration document at path from its backup,
// if a backup exists.
//
// It returns true if the document was restored.
func RecoverBackup(path string) (bool, error) {
	err := os.Rename(path+backupSuffix, path)

	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}
