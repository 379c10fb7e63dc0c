package models

import "time"

type InstallStatus string

const (
	InstallRunning   InstallStatus = "running"
	InstallSucceeded InstallStatus = "succeeded"
	InstallFailed    InstallStatus = "failed"
	InstallCancelled InstallStatus = "cancelled"
)

// InstallDetail 一次安装（下载）任务的概况
type InstallDetail struct {
	ID        string        `json:"id"`                //运行ID，与事件中的runId一致
	VersionID string        `json:"version"`           //安装的版本
	Status    InstallStatus `json:"status"`            //状态
	StartTime time.Time     `json:"startTime"`         //开始时间
	EndTime   time.Time     `json:"endTime,omitempty"` //结束时间
	Tasks     int           `json:"tasks"`             //计划中的文件数
	Completed int           `json:"completed"`         //下载并校验成功的文件数
	Skipped   int           `json:"skipped"`           //缓存命中的文件数
	Failed    int           `json:"failed"`            //最终失败的文件数
	Error     string        `json:"error,omitempty"`   //失败原因
}
