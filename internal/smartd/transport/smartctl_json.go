// Copyright 2024 Clyso GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transport

// This is the subset of smartctl's -j output schema this backend consumes.
// Field names and shapes mirror smartctl's own JSON, not a wire format;
// smartctl has already decoded the on-disk structures for us, which is
// why the ATA/NVMe command implementations below have to reconstruct
// byte buffers before handing them to the decode package (see
// exec_ata.go, exec_nvme.go).

type smartctlOutput struct {
	Device             smartctlDevice       `json:"device"`
	ModelFamily        string               `json:"model_family"`
	ModelName          string               `json:"model_name"`
	SerialNumber       string               `json:"serial_number"`
	WWN                *smartctlWWN         `json:"wwn,omitempty"`
	UserCapacity       *smartctlCapacity    `json:"user_capacity,omitempty"`
	NVMeNamespaceID    uint32               `json:"nvme_namespace_id,omitempty"`
	SmartStatus        *smartctlSmartStatus `json:"smart_status,omitempty"`
	ATASmartAttributes *smartctlATAAttrs    `json:"ata_smart_attributes,omitempty"`
	ATASmartData       *smartctlATASmartData `json:"ata_smart_data,omitempty"`
	ATASmartSelfTest   *smartctlATASelfTest `json:"ata_smart_self_test_log,omitempty"`
	ATASmartErrorLog   *smartctlATAErrorLog `json:"ata_smart_error_log,omitempty"`
	NVMeHealthLog      *smartctlNVMeHealth  `json:"nvme_smart_health_information_log,omitempty"`
	NVMeSelfTestLog    *smartctlNVMeSelfTest `json:"nvme_self_test_log,omitempty"`
	Temperature        *smartctlTemperature `json:"temperature,omitempty"`
	PowerOnTime        *smartctlPowerOnTime `json:"power_on_time,omitempty"`
	Smartctl           smartctlMeta         `json:"smartctl"`
}

type smartctlDevice struct {
	Name     string `json:"name"`
	InfoName string `json:"info_name"`
	Type     string `json:"type"` // "ata", "scsi", "nvme"
	Protocol string `json:"protocol"`
}

type smartctlMeta struct {
	ExitStatus int      `json:"exit_status"`
	Messages   []string `json:"messages,omitempty"`
}

type smartctlWWN struct {
	NAA int64 `json:"naa"`
	OUI int64 `json:"oui"`
	ID  int64 `json:"id"`
}

type smartctlCapacity struct {
	Bytes int64 `json:"bytes"`
}

type smartctlSmartStatus struct {
	Passed bool `json:"passed"`
}

type smartctlATAAttrs struct {
	Table []smartctlATAAttrEntry `json:"table"`
}

type smartctlATAAttrEntry struct {
	ID     int64                  `json:"id"`
	Name   string                 `json:"name"`
	Value  int64                  `json:"value"`
	Worst  int64                  `json:"worst"`
	Thresh int64                  `json:"thresh"`
	Flags  smartctlATAAttrFlags   `json:"flags"`
	Raw    smartctlATAAttrRawVal  `json:"raw"`
}

type smartctlATAAttrFlags struct {
	Value      int64 `json:"value"`
	Prefailure bool  `json:"prefailure"`
}

type smartctlATAAttrRawVal struct {
	Value int64 `json:"value"`
}

type smartctlATASmartData struct {
	OfflineDataCollection struct {
		Status struct {
			Value int64 `json:"value"`
		} `json:"status"`
	} `json:"offline_data_collection"`
	SelfTest struct {
		Status struct {
			Value int64 `json:"value"`
		} `json:"status"`
	} `json:"self_test"`
}

type smartctlATASelfTestEntry struct {
	Num          int64  `json:"num"`
	LBAOfFirstErr struct {
		Value int64 `json:"value"`
	} `json:"lba_of_first_error"`
	Status struct {
		Value int64 `json:"value"`
	} `json:"status"`
	LifetimeHours int64 `json:"lifetime_hours"`
}

type smartctlATASelfTest struct {
	Table []smartctlATASelfTestEntry `json:"table"`
}

type smartctlATAErrorLog struct {
	Count int64 `json:"count"`
}

type smartctlNVMeHealth struct {
	AvailableSpare          int64   `json:"available_spare"`
	AvailableSpareThreshold int64   `json:"available_spare_threshold"`
	ControllerBusyTime      int64   `json:"controller_busy_time"`
	CriticalCompTime        int64   `json:"critical_comp_time"`
	CriticalWarning         int64   `json:"critical_warning"`
	DataUnitsRead           int64   `json:"data_units_read"`
	DataUnitsWritten        int64   `json:"data_units_written"`
	HostReads               int64   `json:"host_reads"`
	HostWrites              int64   `json:"host_writes"`
	MediaErrors             int64   `json:"media_errors"`
	NumErrLogEntries        int64   `json:"num_err_log_entries"`
	PercentageUsed          int64   `json:"percentage_used"`
	PowerCycles             int64   `json:"power_cycles"`
	PowerOnHours            int64   `json:"power_on_hours"`
	Temperature             int64   `json:"temperature"`
	TemperatureSensors      []int64 `json:"temperature_sensors,omitempty"`
	UnsafeShutdowns         int64   `json:"unsafe_shutdowns"`
	WarningTempTime         int64   `json:"warning_temp_time"`
}

type smartctlNVMeSelfTestEntry struct {
	SelfTestCode struct {
		Value int64 `json:"value"`
	} `json:"self_test_code"`
	SelfTestResult struct {
		Value int64 `json:"value"`
	} `json:"self_test_result"`
	PowerOnHours int64 `json:"power_on_hours"`
}

type smartctlNVMeSelfTest struct {
	CurrentSelfTestOperation struct {
		Value int64 `json:"value"`
	} `json:"current_self_test_operation"`
	CurrentSelfTestCompletionPercent int64                       `json:"current_self_test_completion_percent"`
	Table                            []smartctlNVMeSelfTestEntry `json:"table"`
}

type smartctlTemperature struct {
	Current int64 `json:"current"`
}

type smartctlPowerOnTime struct {
	Hours int64 `json:"hours"`
}
