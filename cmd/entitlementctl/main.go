// Command entitlementctl операторская утилита: проверка и обновление доступа
// пользователя, проход связывания и применение миграций.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
