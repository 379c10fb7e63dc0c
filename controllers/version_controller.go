package controllers

import (
	"craft-keeper/services"

	"github.com/gin-gonic/gin"
)

type VersionController struct {
	launcher *services.LauncherService
}

func NewVersionController(launcher *services.LauncherService) *VersionController {
	return &VersionController{launcher: launcher}
}

/**
 * Register version and install routes
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - /versions: remote list, merged descriptor, plan, install
 * - /installs: background installs and their event stream
 */
func (v *VersionController) RegisterRoutes(r *gin.Engine) {
	api := r.Group(apiPrefix)
	api.GET("/versions", v.ListVersions)
	api.GET("/versions/:id", v.GetVersion)
	api.GET("/versions/:id/plan", v.GetPlan)
	api.POST("/versions/:id/install", v.Install)
	api.GET("/installs", v.ListInstalls)
	api.GET("/installs/:run", v.GetInstall)
	api.DELETE("/installs/:run", v.CancelInstall)
	api.GET("/installs/:run/events", v.InstallEvents)
}

// @Summary 获取版本列表
// @Description 远端版本列表，type 参数可按 release/snapshot 过滤；refresh=true 时重新拉取
// @Tags Versions
// @Produce json
// @Param type query string false "版本类型"
// @Param refresh query bool false "重新拉取"
// @Success 200 {object} map[string]interface{}
// @Router /launcher/api/v1/versions [get]
func (v *VersionController) ListVersions(g *gin.Context) {
	if g.Query("refresh") == "true" {
		v.launcher.RefreshVersions()
	}
	list, err := v.launcher.Versions(g.Request.Context())
	if err != nil {
		respondError(g, err)
		return
	}
	g.JSON(200, gin.H{
		"latest":   list.Latest,
		"versions": list.Filter(g.Query("type")),
	})
}

// @Summary 获取合并后的版本描述
// @Tags Versions
// @Param id path string true "版本ID"
// @Success 200 {object} models.VersionDescriptor
// @Failure 404 {object} map[string]interface{} "{"code": "DESCRIPTOR_NOT_FOUND", "version": "1.99"}"
// @Router /launcher/api/v1/versions/{id} [get]
func (v *VersionController) GetVersion(g *gin.Context) {
	desc, err := v.launcher.Resolve(g.Request.Context(), g.Param("id"))
	if err != nil {
		respondError(g, err)
		return
	}
	g.JSON(200, desc)
}

// @Summary 获取下载计划
// @Tags Versions
// @Param id path string true "版本ID"
// @Success 200 {object} models.DownloadPlan
// @Router /launcher/api/v1/versions/{id}/plan [get]
func (v *VersionController) GetPlan(g *gin.Context) {
	inst, err := v.launcher.Plan(g.Request.Context(), g.Param("id"))
	if err != nil {
		respondError(g, err)
		return
	}
	g.JSON(200, inst.Plan)
}

// @Summary 安装版本
// @Description 在后台下载版本的全部文件，返回运行ID；解析或计划失败时直接返回错误
// @Tags Versions
// @Param id path string true "版本ID"
// @Success 202 {object} models.InstallDetail
// @Router /launcher/api/v1/versions/{id}/install [post]
func (v *VersionController) Install(g *gin.Context) {
	run, err := v.launcher.StartInstall(g.Request.Context(), g.Param("id"))
	if err != nil {
		respondError(g, err)
		return
	}
	g.JSON(202, run.Detail())
}

// @Summary 安装列表
// @Tags Installs
// @Success 200 {array} models.InstallDetail
// @Router /launcher/api/v1/installs [get]
func (v *VersionController) ListInstalls(g *gin.Context) {
	g.JSON(200, v.launcher.Runs())
}

// @Summary 安装详情
// @Tags Installs
// @Param run path string true "运行ID"
// @Success 200 {object} models.InstallDetail
// @Router /launcher/api/v1/installs/{run} [get]
func (v *VersionController) GetInstall(g *gin.Context) {
	run, err := v.launcher.GetRun(g.Param("run"))
	if err != nil {
		respondError(g, err)
		return
	}
	g.JSON(200, run.Detail())
}

// @Summary 取消安装
// @Description 已校验的文件保留在缓存中，下次安装会跳过
// @Tags Installs
// @Param run path string true "运行ID"
// @Success 200 {object} models.InstallDetail
// @Router /launcher/api/v1/installs/{run} [delete]
func (v *VersionController) CancelInstall(g *gin.Context) {
	run, err := v.launcher.GetRun(g.Param("run"))
	if err != nil {
		respondError(g, err)
		return
	}
	run.Cancel()
	<-run.Done()
	g.JSON(200, run.Detail())
}

// @Summary 安装事件流
// @Description 以 Server-Sent Events 推送下载事件，先回放已发生的事件，安装结束后发送 end 事件并关闭
// @Tags Installs
// @Produce text/event-stream
// @Param run path string true "运行ID"
// @Router /launcher/api/v1/installs/{run}/events [get]
func (v *VersionController) InstallEvents(g *gin.Context) {
	run, err := v.launcher.GetRun(g.Param("run"))
	if err != nil {
		respondError(g, err)
		return
	}
	g.Header("Cache-Control", "no-cache")
	g.Header("X-Accel-Buffering", "no")

	sent := 0
	ctx := g.Request.Context()
	for {
		events, next, done, wait := run.Since(sent)
		for _, ev := range events {
			g.SSEvent(string(ev.Type), ev)
		}
		sent = next
		if len(events) > 0 {
			g.Writer.Flush()
		}
		if done {
			g.SSEvent("end", run.Detail())
			g.Writer.Flush()
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-wait:
		}
	}
}
