package output

import "fmt"

func errUnknownOutput(id uint64) error {
	return fmt.Errorf("no output with id %d", id)
}

func errModeUnavailable(m Mode) error {
	return fmt.Errorf("mode %s not advertised by output", m)
}
