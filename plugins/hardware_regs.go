package plugins

import "github.com/linht/bgt60/bgt60"

// Register descriptions for UI
var RegisterDescriptions = map[bgt60.Register]string{
	bgt60.MAIN:        "MAIN - Frame start, resets, wake-up timer, clock dividers",
	bgt60.ADC0:        "ADC0 - MADC configuration",
	bgt60.CHIP_ID:     "CHIP_ID - Digital and RF identifiers (read only)",
	bgt60.STAT1:       "STAT1 - Shape group and frame counters",
	bgt60.PACR1:       "PACR1 - PLL analog control 1",
	bgt60.PACR2:       "PACR2 - PLL analog control 2",
	bgt60.SFCTL:       "SFCTL - FIFO threshold, SPI high-speed read, test pattern",
	bgt60.SADC_CTRL:   "SADC_CTRL - Sensor ADC control",
	bgt60.CSI_0:       "CSI_0 - Channel set idle 0",
	bgt60.CSI_1:       "CSI_1 - Channel set idle 1",
	bgt60.CSI_2:       "CSI_2 - Channel set idle 2",
	bgt60.CSCI:        "CSCI - Channel set control idle",
	bgt60.CSDS_0:      "CSDS_0 - Channel set deep sleep 0",
	bgt60.CSDS_1:      "CSDS_1 - Channel set deep sleep 1",
	bgt60.CSDS_2:      "CSDS_2 - Channel set deep sleep 2",
	bgt60.CSCDS:       "CSCDS - Channel set control deep sleep",
	bgt60.CSU1_0:      "CSU1_0 - Shape 1 up-chirp channel set 0",
	bgt60.CSU1_1:      "CSU1_1 - Shape 1 up-chirp channel set 1",
	bgt60.CSU1_2:      "CSU1_2 - Shape 1 up-chirp channel set 2",
	bgt60.CSD1_0:      "CSD1_0 - Shape 1 down-chirp channel set 0",
	bgt60.CSD1_1:      "CSD1_1 - Shape 1 down-chirp channel set 1",
	bgt60.CSD1_2:      "CSD1_2 - Shape 1 down-chirp channel set 2",
	bgt60.CSC1:        "CSC1 - Shape 1 channel set control",
	bgt60.CCR0:        "CCR0 - Chirp control 0",
	bgt60.CCR1:        "CCR1 - Chirp control 1",
	bgt60.CCR2:        "CCR2 - Chirp control 2 (frame length)",
	bgt60.CCR3:        "CCR3 - Chirp control 3",
	bgt60.PLL1_0:      "PLL1_0 - Shape 1 start frequency",
	bgt60.PLL1_1:      "PLL1_1 - Shape 1 ramp step",
	bgt60.PLL1_2:      "PLL1_2 - Shape 1 ramp time",
	bgt60.PLL1_3:      "PLL1_3 - Shape 1 down-ramp",
	bgt60.PLL1_7:      "PLL1_7 - Shape 1 repetitions",
	bgt60.RFT0:        "RFT0 - RF test 0",
	bgt60.RFT1:        "RFT1 - RF test 1",
	bgt60.PLL_DFT0:    "PLL_DFT0 - PLL DFT",
	bgt60.STAT0:       "STAT0 - ADC and power mode status",
	bgt60.SADC_RESULT: "SADC_RESULT - Sensor ADC result",
	bgt60.FSTAT_TR13C: "FSTAT - FIFO fill level and error flags (TR13C)",
	bgt60.FSTAT_UTR11: "FSTAT - FIFO fill level and error flags (UTR11AIP)",
}

func describeRegister(r bgt60.Register) string {
	if d, ok := RegisterDescriptions[r]; ok {
		return d
	}
	if r.Known() {
		return r.String()
	}
	return "Unknown register"
}
