package bids

import (
	"regexp"
	"strconv"
)

// Scheduler export folders are named ".../sub-x005/ses-mri-X5".
var (
	subjectPathRe = regexp.MustCompile(`sub-x(\d+)`)
	sessionPathRe = regexp.MustCompile(`ses-mri-X(\d+)`)
)

// SubjectFromPath extracts the subject index from a scheduler export path.
func SubjectFromPath(path string) (int, bool) {
	return indexFromPath(subjectPathRe, path)
}

// SessionFromPath extracts the session index from a scheduler export path.
func SessionFromPath(path string) (int, bool) {
	return indexFromPath(sessionPathRe, path)
}

func indexFromPath(re *regexp.Regexp, path string) (int, bool) {
	m := re.FindStringSubmatch(path)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
