// Command messagely はメッセージングAPIサーバーを起動する。
//
// 使い方:
//
//	messagely [serve]          APIサーバーを起動する
//	messagely migrate [up|down] マイグレーションを実行する
//	messagely healthcheck      /health を確認する（Dockerヘルスチェック用）
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/messagely/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
