package app

import (
	"fmt"
	"strings"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーを起動する。引数なしの場合の既定値。
	CommandServe Command = "serve"
	// CommandMigrate は未適用のマイグレーションを適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中サーバーの/healthを確認して終了する。
	// distrolessイメージのDocker HEALTHCHECKから呼ばれるため、設定の読み込みを行わない。
	CommandHealthcheck Command = "healthcheck"
	// CommandHelp は使い方を表示して終了する。
	CommandHelp Command = "help"
)

var commandUsages = []struct {
	cmd  Command
	desc string
}{
	{CommandServe, "APIサーバーを起動する（デフォルト）"},
	{CommandMigrate, "データベースマイグレーションを適用する"},
	{CommandHealthcheck, "SERVER_PORTの/healthを確認する"},
	{CommandHelp, "この使い方を表示する"},
}

// ParseCommand はコマンドライン引数の先頭からサブコマンドを解析する。
// 引数が空の場合はCommandServeを返す。
// 未知のサブコマンドでサーバーが起動しないよう、サポート外の値はエラーにする。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return CommandServe, nil
	}

	switch name := args[0]; name {
	case "-h", "--help":
		return CommandHelp, nil
	default:
		for _, u := range commandUsages {
			if string(u.cmd) == name {
				return u.cmd, nil
			}
		}
		return "", fmt.Errorf("unknown command %q\n\n%s", name, Usage())
	}
}

// Usage はサブコマンドの一覧を返す。
func Usage() string {
	var b strings.Builder
	b.WriteString("usage: studyplatform [command]\n\ncommands:\n")
	for _, u := range commandUsages {
		fmt.Fprintf(&b, "  %-12s %s\n", u.cmd, u.desc)
	}
	return b.String()
}
