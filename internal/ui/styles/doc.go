// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the proctor TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Color System (colors.go)

  - Purple - Brand accent and the selected option
  - Cyan - Key hints and progress fill
  - Emerald - Success, completion and a comfortable timer
  - Amber - First-strike warnings and a low timer
  - Rose - Bans, errors and the final minute of a section

TimerColor maps remaining section seconds onto Emerald, Amber and Rose using
TimerLowSecs and TimerCriticalSecs.

Status messages always carry an ASCII shape next to the color:

	StatusIndicators.Success   - [OK]
	StatusIndicators.Error     - [X]
	StatusIndicators.Warning   - [!]
	StatusIndicators.Selected  - (*)

# Theme System (theme.go)

	theme := styles.NewTheme()
	theme.SetSize(msg.Width, msg.Height)
	header := theme.Header.Width(theme.ContentWidth()).Render(title)
	clock := theme.Timer(remaining).Render(proctor.FormatClock(remaining))
*/
package styles
