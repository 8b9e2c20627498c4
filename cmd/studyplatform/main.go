// Command studyplatform はスタディプラットフォームのAPIサーバーを起動する。
//
// サブコマンド:
//
//	serve       APIサーバーを起動する（デフォルト）
//	migrate     データベースマイグレーションを実行する
//	healthcheck /health を叩いて稼働状態を確認する
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/studyplatform/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
