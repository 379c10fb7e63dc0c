package models

import "time"

type RunStatus string

const (
	// 正在运行
	StatusRunning RunStatus = "running"
	// 游戏自行退出（包括非0退出码）
	StatusExited RunStatus = "exited"
	// 启动失败或等待进程时出错
	StatusError RunStatus = "error"
	// 被用户停止
	StatusStopped RunStatus = "stopped"
)

type ProcessDetail struct {
	Title      string    `json:"title"`              //显示用的名字
	VersionID  string    `json:"version"`            //启动的版本
	Command    string    `json:"command"`            //运行时可执行文件
	Args       []string  `json:"args"`               //完整参数
	WorkDir    string    `json:"workDir"`            //游戏目录
	Pid        int       `json:"pid"`                //进程PID
	Status     RunStatus `json:"status"`             //状态
	StartTime  time.Time `json:"startTime"`          //启动时间
	ExitTime   time.Time `json:"exitTime,omitempty"` //退出时间
	ExitCode   int       `json:"exitCode"`           //退出码，运行中为-1
	ExitReason string    `json:"exitReason"`         //退出原因
}
