package cache

import (
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

// key names definition
const (
	ScreenLockKey           = "screen:%d:lock"            // exclusive lock around booking/cancel of a screen, '%d' is screen id
	WaitlistClosedNoticeKey = "waitlist:%d:closed:notice" // set once a closed notice went out for an entry, '%d' is waiting list entry id
)

func MakeScreenLockKey(screenID uint) string {
	return fmt.Sprintf(ScreenLockKey, screenID)
}

func MakeWaitlistClosedNoticeKey(entryID uint) string {
	return fmt.Sprintf(WaitlistClosedNoticeKey, entryID)
}

// errors
var (
	ErrLockTimeout = errors.New("timed out waiting for screen lock")
)

// lua scripts
var releaseLockScript = redis.NewScript(`
	-- KEYS[1] = screen:{screen_id}:lock
	-- ARGV[1] = token of the holder

	-- only the holder may release, an expired lock may already belong to someone else
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)
