package hmi

var labelsEnglish = map[string]string{
	"back":             "Back",
	"home":             "Home",
	"print":            "Print",
	"control":          "Control",
	"prepare":          "Prepare",
	"info":             "Info",
	"select_file":      "Select File",
	"no_media":         "No media",
	"move":             "Move",
	"disable_steppers": "Disable Steppers",
	"auto_home":        "Auto Home",
	"zero_position":    "Set Home Here",
	"preheat_pla":      "Preheat PLA",
	"preheat_abs":      "Preheat ABS",
	"load_filament":    "Load Filament",
	"unload_filament":  "Unload Filament",
	"cooldown":         "Cooldown",
	"auto_level":       "Auto Level",
	"temperature":      "Temperature",
	"motion":           "Motion",
	"runout_sensor":    "Runout Sensor",
	"load_settings":    "Load Settings",
	"language":         "Language",
	"language_name":    "English",
	"reset_settings":   "Reset Settings",
	"hotend":           "Hotend",
	"bed":              "Bed",
	"fan":              "Fan Speed",
	"pla_settings":     "PLA Settings",
	"abs_settings":     "ABS Settings",
	"save":             "Save",
	"max_speed":        "Max Speed",
	"max_acceleration": "Max Acceleration",
	"max_jerk":         "Max Jerk",
	"steps_per_mm":     "Steps/mm",
	"move_axis":        "Move %s",
	"max_speed_axis":   "Max Speed %s",
	"max_accel_axis":   "Max Accel %s",
	"max_jerk_axis":    "Max Jerk %s",
	"steps_axis":       "Steps/mm %s",
	"print_speed":      "Print Speed",
	"z_offset":         "Z Offset",
	"tune":             "Tune",
	"pause":            "Pause",
	"resume":           "Resume",
	"stop":             "Stop",
	"on":               "On",
	"off":              "Off",
	"yes":              "Yes",
	"no":               "No",
	"confirm":          "Confirm",
	"printing":         "Printing",
	"elapsed":          "Elapsed",
	"remaining":        "Remaining",
	"homing_wait":      "Homing, please wait",
	"stopping":         "Stopping print",
	"leveling":         "Leveling, please wait",
	"leveling_done":    "Leveling done",
	"heating":          "Heating nozzle",
	"loading":          "Loading filament",
	"unloading":        "Unloading filament",
	"press_to_cancel":  "Press to cancel",
	"cold_extrusion":   "Nozzle is too cold",
	"runout":           "Filament runout",
	"runout_prompt":    "Reload filament and resume?",
	"resume_prompt":    "Resume interrupted print?",
	"pause_prompt":     "Pause print?",
	"stop_prompt":      "Stop print?",
	"version":          "Version",
	"build":            "Build",
	"web":              "Web",
}

var labelsChinese = map[string]string{
	"back":             "返回",
	"home":             "主页",
	"print":            "打印",
	"control":          "控制",
	"prepare":          "准备",
	"info":             "信息",
	"select_file":      "选择文件",
	"no_media":         "无存储卡",
	"move":             "移动",
	"disable_steppers": "关闭电机",
	"auto_home":        "自动归零",
	"zero_position":    "设置原点",
	"preheat_pla":      "预热 PLA",
	"preheat_abs":      "预热 ABS",
	"load_filament":    "进料",
	"unload_filament":  "退料",
	"cooldown":         "降温",
	"auto_level":       "自动调平",
	"temperature":      "温度",
	"motion":           "运动",
	"runout_sensor":    "断料检测",
	"load_settings":    "读取设置",
	"language":         "语言",
	"language_name":    "中文",
	"reset_settings":   "恢复出厂",
	"hotend":           "喷头",
	"bed":              "热床",
	"fan":              "风扇",
	"pla_settings":     "PLA 设置",
	"abs_settings":     "ABS 设置",
	"save":             "保存",
	"max_speed":        "最大速度",
	"max_acceleration": "最大加速度",
	"max_jerk":         "最大拐角速度",
	"steps_per_mm":     "传动比",
	"move_axis":        "移动 %s",
	"max_speed_axis":   "最大速度 %s",
	"max_accel_axis":   "最大加速度 %s",
	"max_jerk_axis":    "拐角速度 %s",
	"steps_axis":       "传动比 %s",
	"print_speed":      "打印速度",
	"z_offset":         "Z 偏移",
	"tune":             "调整",
	"pause":            "暂停",
	"resume":           "继续",
	"stop":             "停止",
	"on":               "开",
	"off":              "关",
	"yes":              "是",
	"no":               "否",
	"confirm":          "确定",
	"printing":         "打印中",
	"elapsed":          "已用时间",
	"remaining":        "剩余时间",
	"homing_wait":      "归零中，请稍候",
	"stopping":         "正在停止",
	"leveling":         "调平中，请稍候",
	"leveling_done":    "调平完成",
	"heating":          "喷头加热中",
	"loading":          "进料中",
	"unloading":        "退料中",
	"press_to_cancel":  "按下取消",
	"cold_extrusion":   "喷头温度过低",
	"runout":           "检测到断料",
	"runout_prompt":    "重新装料后继续？",
	"resume_prompt":    "继续上次打印？",
	"pause_prompt":     "暂停打印？",
	"stop_prompt":      "停止打印？",
	"version":          "版本",
	"build":            "构建",
	"web":              "网页",
}

func labelsFor(l Language) map[string]string {
	if l == LanguageChinese {
		return labelsChinese
	}
	return labelsEnglish
}
