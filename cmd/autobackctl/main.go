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
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"autoback/internal/archive"
	"autoback/internal/history"
	"autoback/pkg/config"
)

// version 构建时可用 -ldflags 覆盖
var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "autobackctl",
		Short: "autoback 控制工具",
		Long: `autobackctl 通过只读管理接口查看 autoback 守护进程，并可离线校验归档。

Examples:
  autobackctl status
  autobackctl jobs --limit 5 --status failed
  autobackctl verify /autoback/alice/My Game/0100000000010000_20260101_120000.zip
  autobackctl config --config /config/autoback/config.ini`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&baseURL, "url", apiBaseURL(), "管理接口地址（也可用 AUTOBACK_ADMIN_URL）")

	cmd.AddCommand(newStatusCmd(&baseURL))
	cmd.AddCommand(newJobsCmd(&baseURL))
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newStatusCmd(baseURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "显示会话监视器状态",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := getStatus(newClient(*baseURL))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "state:      %s\n", st.State)
			if st.AppID != "" {
				fmt.Fprintf(out, "app:        %s %s\n", st.AppID, st.AppName)
				fmt.Fprintf(out, "account:    %s\n", st.Nickname)
			}
			fmt.Fprintf(out, "jobs:       %d run, %d failed\n", st.JobsRun, st.JobsFailed)
			if !st.LastEdgeAt.IsZero() {
				fmt.Fprintf(out, "last edge:  %s\n", humanize.Time(st.LastEdgeAt))
			}
			return nil
		},
	}
}

func newJobsCmd(baseURL *string) *cobra.Command {
	var limit int
	var status string
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "列出最近的归档任务",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := listJobs(newClient(*baseURL), limit, status)
			if err != nil {
				return err
			}
			printJobs(cmd.OutOrStdout(), jobs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "最多显示条数")
	cmd.Flags().StringVar(&status, "status", "", "按状态过滤：completed | failed | skipped")
	return cmd
}

func printJobs(w io.Writer, jobs []history.JobRecord) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "no jobs")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FINISHED\tSTATUS\tAPP\tUSER\tSIZE\tPATH")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			j.FinishedAt.Local().Format(time.DateTime),
			j.Status,
			j.AppID,
			j.Nickname,
			humanize.IBytes(uint64(j.Bytes)),
			j.OutputPath,
		)
	}
	_ = tw.Flush()
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <archive.zip>",
		Short: "按清单校验归档中每个文件的 BLAKE3",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if code := verifyArchive(args[0], cmd.OutOrStdout(), cmd.ErrOrStderr()); code != 0 {
				return fmt.Errorf("verification failed")
			}
			return nil
		},
	}
}

// verifyArchive 返回进程退出码：0 通过，1 失败
func verifyArchive(path string, stdout, stderr io.Writer) int {
	result := archive.VerifyFile(path)
	if result.Manifest != nil {
		m := result.Manifest
		fmt.Fprintf(stdout, "app:      %s %s\n", m.AppID, m.AppName)
		fmt.Fprintf(stdout, "account:  %s %s\n", m.AccountUID, m.Nickname)
		fmt.Fprintf(stdout, "created:  %s\n", m.CreatedAt.Local().Format(time.DateTime))
		fmt.Fprintf(stdout, "files:    %d (%s)\n", m.FileCount, humanize.IBytes(uint64(m.TotalBytes)))
	}
	if !result.OK {
		fmt.Fprintf(stderr, "Verification FAILED: %s\n", path)
		for _, e := range result.Errors {
			fmt.Fprintf(stderr, "  - %s\n", e)
		}
		return 1
	}
	fmt.Fprintf(stdout, "Verification PASSED: %d files match manifest\n", result.Files)
	return 0
}

func newConfigCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "打印生效的配置（文件 + 默认值 + 环境变量）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, found, err := config.LoadOrDefault(path)
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintf(cmd.ErrOrStderr(), "# %s not found, showing defaults\n", path)
			}
			return printConfig(cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", config.DefaultConfigPath, "配置文件路径")
	return cmd
}

func printConfig(w io.Writer, cfg *config.Config) error {
	redacted := *cfg
	if redacted.Cache.Password != "" {
		redacted.Cache.Password = "******"
	}
	if redacted.History.DSN != "" {
		redacted.History.DSN = "******"
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(redacted); err != nil {
		return err
	}
	return enc.Close()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "打印版本",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "autobackctl", version)
		},
	}
}
