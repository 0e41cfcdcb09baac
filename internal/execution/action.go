package execution

import (
	"fmt"

	"github.com/google/uuid"
)

func NewActionID() string {
	return "act_" + uuid.NewString()
}

func stepID(i int) string {
	return fmt.Sprintf("cmd-%02d", i+1)
}
