// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"autoback/internal/app/daemon"
	"autoback/pkg/config"
)

// shutdownTimeout 等待正在进行的归档任务结束的上限
const shutdownTimeout = 30 * time.Second

func main() {
	var configPath string
	var showVersion bool
	flagSet := pflag.NewFlagSet("autoback", pflag.ExitOnError)
	flagSet.StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "配置文件路径（.ini / .yaml）")
	flagSet.BoolVar(&showVersion, "version", false, "打印版本并退出")
	_ = flagSet.Parse(os.Args[1:])

	if showVersion {
		fmt.Println("autoback", daemon.Version)
		return
	}

	// 配置文件不存在时使用默认值
	cfg, found, err := config.LoadOrDefault(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	app, err := daemon.NewApp(cfg)
	if err != nil {
		log.Fatalf("初始化应用失败: %v", err)
	}
	if !found {
		app.Logger().Warn("配置文件不存在，使用默认配置", "path", configPath)
	}

	if err := app.Start(); err != nil {
		log.Fatalf("启动应用失败: %v", err)
	}

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.Shutdown(ctx); err != nil {
		log.Printf("关闭应用失败: %v", err)
	}
}
