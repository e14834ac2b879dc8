// Package main provides the pecoff GUI viewer.
package main

import (
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/fatih/color"

	"github.com/ZacharyZcR/pecoff/internal/config"
)

func main() {
	cfg, err := config.Load("")
	if err != nil || cfg.Validate() != nil {
		cfg = config.Default()
	}
	// Report text goes into widgets, never a terminal.
	color.NoColor = true

	myApp := app.New()
	myWindow := myApp.NewWindow("pecoff - PE文件查看与修改工具")
	myWindow.Resize(fyne.NewSize(900, 700))

	filePathEntry := widget.NewEntry()
	filePathEntry.SetPlaceHolder("选择PE文件...")

	reportOutput := widget.NewMultiLineEntry()
	reportOutput.SetPlaceHolder("分析结果将显示在这里...")
	reportOutput.Disable()

	yamlOutput := widget.NewMultiLineEntry()
	yamlOutput.SetPlaceHolder("YAML结构将显示在这里...")
	yamlOutput.Disable()

	statusLabel := widget.NewLabel("就绪")

	setStatus := func(s string) {
		fyne.Do(func() { statusLabel.SetText(s) })
	}
	showError := func(err error, status string) {
		fyne.Do(func() {
			dialog.ShowError(err, myWindow)
			statusLabel.SetText(status)
		})
	}

	fileButton := widget.NewButton("选择文件", func() {
		dialog.ShowFileOpen(func(file fyne.URIReadCloser, err error) {
			if err != nil || file == nil {
				return
			}
			defer func() { _ = file.Close() }()
			filePathEntry.SetText(file.URI().Path())
		}, myWindow)
	})

	analyzeButton := widget.NewButton("分析", func() {
		if filePathEntry.Text == "" {
			dialog.ShowError(errors.New("请先选择PE文件"), myWindow)
			return
		}

		path := filePathEntry.Text
		statusLabel.SetText("正在分析...")
		go func() {
			res, err := analyzeFile(path, cfg)
			if err != nil {
				showError(err, "分析失败")
				return
			}
			fyne.Do(func() {
				reportOutput.SetText(res.Report)
				yamlOutput.SetText(res.YAML)
				statusLabel.SetText(res.Status())
			})
		}()
	})

	sectionEntry := widget.NewEntry()
	sectionEntry.SetPlaceHolder(".text")
	permsEntry := widget.NewEntry()
	permsEntry.SetPlaceHolder("R-X")

	patchSectionButton := widget.NewButton("修改节区权限", func() {
		if filePathEntry.Text == "" {
			dialog.ShowError(errors.New("请先选择PE文件"), myWindow)
			return
		}
		if sectionEntry.Text == "" || permsEntry.Text == "" {
			dialog.ShowError(errors.New("请输入节区名称和权限"), myWindow)
			return
		}

		path, name, perms := filePathEntry.Text, sectionEntry.Text, permsEntry.Text
		statusLabel.SetText("正在修改节区权限...")
		go func() {
			if err := patchSection(path, name, perms); err != nil {
				showError(err, "修改失败")
				return
			}
			fyne.Do(func() {
				dialog.ShowInformation("成功", fmt.Sprintf("成功修改节区 %s 权限为 %s", name, perms), myWindow)
			})
			setStatus("修改完成")
		}()
	})

	entryEntry := widget.NewEntry()
	entryEntry.SetPlaceHolder("0x1000")

	patchEntryButton := widget.NewButton("修改入口点", func() {
		if filePathEntry.Text == "" {
			dialog.ShowError(errors.New("请先选择PE文件"), myWindow)
			return
		}
		if entryEntry.Text == "" {
			dialog.ShowError(errors.New("请输入入口点地址"), myWindow)
			return
		}

		path, entry := filePathEntry.Text, entryEntry.Text
		statusLabel.SetText("正在修改入口点...")
		go func() {
			if err := patchEntryPoint(path, entry); err != nil {
				showError(err, "修改失败")
				return
			}
			fyne.Do(func() {
				dialog.ShowInformation("成功", fmt.Sprintf("成功修改入口点为 %s", entry), myWindow)
			})
			setStatus("修改完成")
		}()
	})

	fileBox := container.NewBorder(nil, nil, nil, fileButton, filePathEntry)

	tabs := container.NewAppTabs(
		container.NewTabItem("报告", container.NewVScroll(reportOutput)),
		container.NewTabItem("YAML", container.NewVScroll(yamlOutput)),
	)

	patchBox := container.NewVBox(
		widget.NewLabel("节区权限修改:"),
		container.NewGridWithColumns(3,
			widget.NewLabel("节区名称:"),
			widget.NewLabel("权限:"),
			widget.NewLabel(""),
		),
		container.NewGridWithColumns(3,
			sectionEntry,
			permsEntry,
			patchSectionButton,
		),
		widget.NewSeparator(),
		widget.NewLabel("入口点修改:"),
		container.NewGridWithColumns(2,
			widget.NewLabel("入口点地址:"),
			widget.NewLabel(""),
		),
		container.NewGridWithColumns(2,
			entryEntry,
			patchEntryButton,
		),
	)

	mainContent := container.NewBorder(
		container.NewVBox(
			widget.NewLabel("PE文件路径:"),
			fileBox,
			widget.NewSeparator(),
			analyzeButton,
		),
		container.NewVBox(
			widget.NewSeparator(),
			statusLabel,
		),
		nil,
		container.NewVBox(
			widget.NewSeparator(),
			patchBox,
		),
		tabs,
	)

	myWindow.SetContent(mainContent)
	myWindow.ShowAndRun()
}
