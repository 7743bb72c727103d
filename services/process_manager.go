package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"furnace/internal/logger"
	"furnace/internal/models"
	"furnace/internal/utils"
)

/**
 * ProcessControl launches and terminates long running helper processes
 * @description
 * - Launch returns once the process has been spawned, the pid is recorded in pidFile
 * - Terminate asks the process to quit and escalates when it does not
 */
type ProcessControl interface {
	Launch(ctx context.Context, title, command string, args []string, pidFile string) (int, error)
	Terminate(ctx context.Context, pid int, title string) error
}

/**
 * ProcessInstance 进程实例信息
 * @property {string} title - 进程标题，用于显示
 * @property {string} command - 执行命令
 * @property {[]string} args - 命令参数
 * @property {string} pidFile - 记录进程ID的文件
 * @property {string} status - 进程状态: running/exited/stopped/error
 * @property {time.Time} startTime - 启动时间
 * @property {time.Time} lastExitTime - 最后退出时间
 * @property {string} lastExitReason - 最后退出原因
 */
type ProcessInstance struct {
	Title          string           //显示用的名字
	Command        string           //进程启动命令
	Args           []string         //进程参数
	WorkDir        string           //工作目录
	PidFile        string           //记录进程ID的文件
	Status         models.RunStatus //状态
	StartTime      time.Time        //启动时间
	LastExitTime   time.Time        //最后一次退出的时间
	LastExitReason string           //最后一次退出的原因
	process        *os.Process
	mutex          sync.Mutex
}

func NewProcessInstance(title, command string, args []string, pidFile string) *ProcessInstance {
	return &ProcessInstance{
		Title:   title,
		Command: command,
		Args:    args,
		PidFile: pidFile,
		Status:  models.StatusStopped,
	}
}

func (pi *ProcessInstance) Pid() int {
	if pi.process == nil {
		return 0
	}
	return pi.process.Pid
}

/**
 * StartProcess 启动进程
 * @returns {error} 返回错误信息
 * @description
 * - 子进程使用独立的进程组，furnace退出后继续运行
 * - 进程ID写入PidFile
 * - 协程等待进程退出，避免僵尸进程
 */
func (pi *ProcessInstance) StartProcess() error {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	if pi.Status == models.StatusRunning {
		return nil
	}
	logger.Infof("Executing command: %s", utils.CommandString(pi.Command, pi.Args))

	// 不使用CommandContext，进程生命周期独立于本次调用
	cmd := exec.Command(pi.Command, pi.Args...)
	if pi.WorkDir != "" {
		cmd.Dir = pi.WorkDir
	}
	utils.SetNewPG(cmd)

	if err := cmd.Start(); err != nil {
		pi.Status = models.StatusError
		pi.LastExitReason = fmt.Sprintf("start failed: %v", err)
		logger.Errorf("Failed to start process '%s', error: %v", pi.Title, err)
		return utils.ToolFailure(pi.Command, pi.Args, nil, nil, err)
	}

	pi.process = cmd.Process
	pi.Status = models.StatusRunning
	pi.StartTime = time.Now()
	if pi.PidFile != "" {
		if err := utils.WritePidFile(pi.PidFile, pi.Pid()); err != nil {
			logger.Warnf("Failed to write pid file %s: %v", pi.PidFile, err)
		}
	}
	logger.Infof("Process '%s' started (PID: %d)", pi.Title, pi.Pid())

	go pi.watchProcess()
	return nil
}

/**
 * watchProcess 监控进程状态的协程
 * @description
 * - 统一使用process.Wait()等待进程退出
 * - 更新进程状态并记录退出原因
 */
func (pi *ProcessInstance) watchProcess() {
	proc := pi.process
	_, err := proc.Wait()

	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	pi.LastExitTime = time.Now()
	if pi.Status == models.StatusStopped {
		logger.Infof("Process '%s' (PID: %d) stopped by user", pi.Title, proc.Pid)
		return
	}
	if err != nil {
		logger.Errorf("Process '%s' (PID: %d) exited with error: %v", pi.Title, proc.Pid, err)
		pi.LastExitReason = fmt.Sprintf("exited with error: %v", err)
		pi.Status = models.StatusError
	} else {
		logger.Infof("Process '%s' (PID: %d) exited normally", pi.Title, proc.Pid)
		pi.LastExitReason = "exited normally"
		pi.Status = models.StatusExited
	}
}

// DetachedProcessControl is the ProcessControl used outside tests.
type DetachedProcessControl struct {
	Grace time.Duration
}

func (c DetachedProcessControl) Launch(ctx context.Context, title, command string, args []string, pidFile string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	pi := NewProcessInstance(title, command, args, pidFile)
	if err := pi.StartProcess(); err != nil {
		return 0, err
	}
	return pi.Pid(), nil
}

func (c DetachedProcessControl) Terminate(ctx context.Context, pid int, title string) error {
	grace := c.Grace
	if grace == 0 {
		grace = 10 * time.Second
	}
	return utils.TerminateProcess(pid, title, grace)
}
