package wsrouter

import "context"

type ctxKey string

const (
	actionKey ctxKey = "action"
)

func GetActionFromCtx(ctx context.Context) string {
	action, _ := ctx.Value(actionKey).(string)
	return action
}
